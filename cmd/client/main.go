package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/client"
	"github.com/jason-s-yu/archipelago/internal/config"
	"github.com/jason-s-yu/archipelago/internal/logging"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		config.Exitf("archipelago-client: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		config.Exitf("archipelago-client: %v", err)
	}
	log := logger.WithField("nickname", cfg.Nickname)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	sess, err := client.Dial(dctx, cfg.ServerURL, cfg.PingInterval, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed connecting")
	}
	defer sess.Close()

	join := protocol.ClientMessage{
		Nickname: cfg.Nickname,
		Players:  cfg.Players,
		Expert:   cfg.Expert,
		LobbyID:  cfg.LobbyID,
	}
	player := client.NewAutoPlayer(uint64(time.Now().UnixNano()), cfg.Expert)
	end, err := sess.Play(ctx, join, player)
	var je *client.JoinError
	switch {
	case errors.As(err, &je):
		log.WithField("reason", je.Reason).Fatal(je.Explanation)
	case errors.Is(err, client.ErrAbandoned):
		log.WithError(err).Fatal("Session abandoned")
	case err != nil:
		log.WithError(err).Fatal("Session failed")
	}

	if end == nil {
		log.Warn("Match ended without a result")
		return
	}
	entry := log.WithFields(logrus.Fields{"reason": end.Reason, "winner": end.Winner})
	mirror := sess.Reconciler.Mirror
	me := mirror.Me()
	switch {
	case end.Winner < 0 || end.Winner >= len(mirror.Players):
		entry.Info("Match ended in a draw")
	case end.Winner == mirror.Seat,
		me != nil && me.Color != engine.NoTower && mirror.Players[end.Winner].Color == me.Color:
		entry.Info("Match won")
	default:
		entry.WithField("winnerNickname", end.WinnerNickname).Info("Match lost")
	}
}

package client

import "github.com/jason-s-yu/archipelago/engine"

// Prompt is the next input the local player has to supply.
type Prompt uint8

const (
	PromptNone Prompt = iota // nothing new to ask
	PromptWait               // another player is acting
	PromptTowerColor
	PromptDeck
	PromptAssistant
	PromptMoveStudent
	PromptMotherNature
	PromptCloud
	PromptCharacterData
	PromptAbandon // the session cannot continue
	PromptDone    // the match is over
)

var promptNames = [...]string{
	PromptNone:          "none",
	PromptWait:          "wait",
	PromptTowerColor:    "tower_color",
	PromptDeck:          "deck",
	PromptAssistant:     "assistant",
	PromptMoveStudent:   "move_student",
	PromptMotherNature:  "mother_nature",
	PromptCloud:         "cloud",
	PromptCharacterData: "character_data",
	PromptAbandon:       "abandon",
	PromptDone:          "done",
}

func (p Prompt) String() string {
	if int(p) < len(promptNames) {
		return promptNames[p]
	}
	return "prompt(?)"
}

// NeedsInput reports whether the prompt asks the player for a message.
func (p Prompt) NeedsInput() bool {
	return p >= PromptTowerColor && p <= PromptCharacterData
}

// DecideNextPrompt maps the match position to the local prompt.
func DecideNextPrompt(phase engine.Phase, isMyTurn bool) Prompt {
	if phase == engine.PhaseEnd {
		return PromptDone
	}
	if !isMyTurn {
		return PromptWait
	}
	switch phase {
	case engine.PhaseSetupTower:
		return PromptTowerColor
	case engine.PhaseSetupDeck:
		return PromptDeck
	case engine.PhasePlanning:
		return PromptAssistant
	case engine.PhaseAction1:
		return PromptMoveStudent
	case engine.PhaseAction2:
		return PromptMotherNature
	case engine.PhaseAction3:
		return PromptCloud
	case engine.PhaseCharacter:
		return PromptCharacterData
	}
	return PromptWait
}

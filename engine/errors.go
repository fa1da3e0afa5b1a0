package engine

import "fmt"

// Code is the machine-readable category of a rejected action. Its string form
// travels on the wire as the nack discriminator.
type Code string

const (
	CodeInvalidAction        Code = "invalid_action"
	CodeInvalidTower         Code = "invalid_tower"
	CodeInvalidDeck          Code = "invalid_deck"
	CodeInvalidAssistant     Code = "invalid_assistant"
	CodeInvalidStudent       Code = "invalid_student"
	CodeInvalidIsland        Code = "invalid_island"
	CodeInvalidMotherNature  Code = "invalid_mother_nature_movement"
	CodeInvalidCloud         Code = "invalid_cloud"
	CodeTableFull            Code = "table_full"
	CodeCharacterPrice       Code = "character_price"
	CodeCharacterUsed        Code = "character_used"
	CodeCharacterUnavailable Code = "character_unavailable"
)

// CharacterCode is the nack code for a precondition failure of a specific card.
func CharacterCode(k CharacterKind) Code { return Code(k.String()) }

// RuleError is returned for every action the rules reject. Rejections never
// change state.
type RuleError struct {
	Code    Code
	Message string
}

func (e *RuleError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Is matches any *RuleError with the same code.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Code == e.Code
}

func reject(code Code, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Message: fmt.Sprintf(format, args...)}
}

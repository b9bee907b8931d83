package rummy

import "fmt"

// Code is the closed set of rejection reasons. The message half of an Error
// carries the user-visible text; handlers match on the code.
type Code string

const (
	CodeGameNotFound        Code = "GAME_NOT_FOUND"
	CodeAlreadyJoined       Code = "ALREADY_JOINED"
	CodeSelfJoin            Code = "SELF_JOIN"
	CodeNotYourTurn         Code = "NOT_YOUR_TURN"
	CodeWrongPhase          Code = "WRONG_PHASE"
	CodeDeckExhausted       Code = "DECK_EXHAUSTED"
	CodeDuplicateCard       Code = "DUPLICATE_CARD"
	CodeInvalidCard         Code = "INVALID_CARD"
	CodeInvalidRun          Code = "INVALID_RUN"
	CodeRandomCards         Code = "RANDOM_CARDS"
	CodeTooFewCards         Code = "TOO_FEW_CARDS"
	CodeCardsNotInHand      Code = "CARDS_NOT_IN_HAND"
	CodeCardNotInHand       Code = "CARD_NOT_IN_HAND"
	CodeForcedCardNotPlayed Code = "FORCED_CARD_NOT_PLAYED"
	CodeMustPlayForcedCard  Code = "MUST_PLAY_FORCED_CARD"
	CodeMustRetainDiscard   Code = "MUST_RETAIN_DISCARDABLE"
	CodeAlreadyContinued    Code = "ALREADY_CONTINUED"
	CodeNotContiguous       Code = "NOT_CONTIGUOUS"
	CodeUnusableDiscard     Code = "UNUSABLE_DISCARD"
	CodeMeldNotFound        Code = "MELD_NOT_FOUND"
	CodeNotClaimant         Code = "NOT_CLAIMANT"
	CodeNoSuchCandidate     Code = "NO_SUCH_CANDIDATE"
	CodeGameOver            Code = "GAME_OVER"
	CodeDiscardOutOfRange   Code = "DISCARD_OUT_OF_RANGE"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any Error carrying the same code, so callers can use errors.Is
// against the sentinels below regardless of message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrGameNotFound      = &Error{CodeGameNotFound, "Game not found"}
	ErrAlreadyJoined     = &Error{CodeAlreadyJoined, "Game already joined"}
	ErrSelfJoin          = &Error{CodeSelfJoin, "Player cannot join twice"}
	ErrNotYourTurn       = &Error{CodeNotYourTurn, "Not your turn"}
	ErrDeckExhausted     = &Error{CodeDeckExhausted, "No cards left in the deck"}
	ErrDuplicateCard     = &Error{CodeDuplicateCard, "Duplicate card"}
	ErrInvalidCard       = &Error{CodeInvalidCard, "Card is not in the deck"}
	ErrInvalidRun        = &Error{CodeInvalidRun, "Invalid Straight"}
	ErrRandomCards       = &Error{CodeRandomCards, "Cards do not form a set"}
	ErrTooFewCards       = &Error{CodeTooFewCards, "Sets require at least three cards"}
	ErrCardsNotInHand    = &Error{CodeCardsNotInHand, "Card(s) not in your hand"}
	ErrCardNotInHand     = &Error{CodeCardNotInHand, "Card is not in your hand"}
	ErrMustRetainDiscard = &Error{CodeMustRetainDiscard, "Must keep at least one card to discard"}
	ErrAlreadyContinued  = &Error{CodeAlreadyContinued, "Set has already been continued"}
	ErrNotContiguous     = &Error{CodeNotContiguous, "Cards do not continue the set"}
	ErrUnusableDiscard   = &Error{CodeUnusableDiscard, "No way to use that discard"}
	ErrMeldNotFound      = &Error{CodeMeldNotFound, "Set not found"}
	ErrNotClaimant       = &Error{CodeNotClaimant, "No pending claim for you"}
	ErrNoSuchCandidate   = &Error{CodeNoSuchCandidate, "No such claim option"}
	ErrGameOver          = &Error{CodeGameOver, "Game is over"}
	ErrDiscardOutOfRange = &Error{CodeDiscardOutOfRange, "No discard at that position"}
)

func wrongPhase(message string) *Error {
	return &Error{CodeWrongPhase, message}
}

func forcedCardNotPlayed(card Card) *Error {
	return newError(CodeForcedCardNotPlayed, "Must play the %s in a set before any other set", card)
}

func mustPlayForcedCard(card Card) *Error {
	return newError(CodeMustPlayForcedCard, "Must play the %s before discarding", card)
}

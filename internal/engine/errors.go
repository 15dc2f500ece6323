package engine

import "errors"

// Kind classifies a failure so transports can map it without knowing every sentinel.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindState            Kind = "state"
	KindTurn             Kind = "turn"
	KindIdempotence      Kind = "idempotence"
	KindLookup           Kind = "lookup"
	KindCapacity         Kind = "capacity"
	KindIdentityConflict Kind = "identity_conflict"
	KindInternal         Kind = "internal"
)

// Error is a typed, recoverable failure. Sentinels are compared by identity.
type Error struct {
	Kind Kind
	msg  string
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrEmptyFleet  = NewError(KindValidation, "fleet is empty")
	ErrInvalidShip = NewError(KindValidation, "invalid ship")
	ErrOutOfBounds = NewError(KindValidation, "position out of bounds")
	ErrOverlap     = NewError(KindValidation, "ships overlap")

	ErrAlreadyPlaced = NewError(KindState, "ships already placed")
	ErrNotActive     = NewError(KindState, "match is not active")
	ErrMatchFinished = NewError(KindState, "match already finished")

	ErrNotYourTurn = NewError(KindTurn, "not your turn")

	ErrAlreadyAttacked = NewError(KindIdempotence, "cell already attacked")

	ErrUnknownSlot = NewError(KindLookup, "unknown player slot")

	ErrNoValidCells = NewError(KindCapacity, "no cells left to attack")

	ErrInconsistentBoard = NewError(KindInternal, "board and fleet are inconsistent")
)

package errors

import "errors"

var (
	ErrUnauthorized             = errors.New("caller is not an admin")
	ErrIncorrectTokenContract   = errors.New("sender is not the registered token contract")
	ErrInsufficientTokenDeposit = errors.New("attached funds below the creation deposit")
	ErrInvalidTokenDeposit      = errors.New("declared deposit does not equal the creation deposit")
	ErrInvalidCreationPayload   = errors.New("invalid creation payload")
	ErrInvalidPollKind          = errors.New("invalid poll kind")
	ErrResolutionTimeRequired   = errors.New("prediction poll requires a resolution time")
	ErrEndAfterResolution       = errors.New("poll must end before its resolution time")
	ErrUnexpectedResolutionTime = errors.New("opinion poll must not carry a resolution time")
	ErrCreationInFlight         = errors.New("a poll creation is already in flight")
	ErrUnknownCorrelationToken  = errors.New("unknown reply correlation token")
	ErrEmptyWinner              = errors.New("prediction poll finish requires a winner")
	ErrTokenAlreadyRegistered   = errors.New("token contract is already registered")
	ErrTokenNotRegistered       = errors.New("token contract is not registered")
	ErrInvalidZeroAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInvalidAddress           = errors.New("invalid address")
	ErrPollNotRegistered        = errors.New("poll is not registered")
)

package errors

import "errors"

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrPollExists       = errors.New("poll already exists")
	ErrInvalidSideCount = errors.New("poll must declare at least one side")
	ErrVotingClosed     = errors.New("voting window has elapsed")
	ErrAlreadyVoted     = errors.New("already participated")
	ErrUnexpectedFunds  = errors.New("ballots must not attach funds")
	ErrUnauthorized     = errors.New("only the owner can perform this action")
	ErrAlreadyFinished  = errors.New("poll is already finished")
	ErrPollNotEnded     = errors.New("poll cannot be finished before its end time")
	ErrAlreadyReclaimed = errors.New("deposit already reclaimed")
	ErrThresholdNotMet  = errors.New("not enough total participation")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrVoterNotFound    = errors.New("voter has no record in this poll")
)

package errors

import "errors"

var (
	ErrUnauthorized                = errors.New("caller is not a treasury admin")
	ErrInvalidZeroAmount           = errors.New("amount must be greater than zero")
	ErrInvalidAddress              = errors.New("address is invalid")
	ErrAllowanceNotFound           = errors.New("allowance not found for address")
	ErrInsufficientRemainAllowance = errors.New("remaining allowance is insufficient")
	ErrInsufficientBalance         = errors.New("treasury balance is insufficient")
	ErrDistributionNotFound        = errors.New("distribution not found")
	ErrInvalidDistributionWindow   = errors.New("distribution window must end after it starts")
)

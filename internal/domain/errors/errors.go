package errors

import "errors"

var (
	ErrAlreadyExists    = errors.New("already exists")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrUnknownColumn    = errors.New("unknown order column")
	ErrValidationFailed = errors.New("validation failed")
	ErrNothingToExport  = errors.New("No orders to export.")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrEmptySelection   = errors.New("no orders selected")
)

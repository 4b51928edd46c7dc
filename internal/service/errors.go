package service

import "errors"

var (
	ErrValidation         = errors.New("validation")          // 400
	ErrInvalidCredentials = errors.New("invalid credentials") // 401
	ErrRegistrationFailed = errors.New("registration failed") // 500
	ErrOrderNotFound      = errors.New("order not found")     // 404
	ErrItemNotFound       = errors.New("order item not found") // 404
	ErrOwnerNotFound      = errors.New("owner not found")     // 404
	ErrInvalidTransition  = errors.New("invalid status transition") // 400
	ErrInternal           = errors.New("internal error")      // 500
)

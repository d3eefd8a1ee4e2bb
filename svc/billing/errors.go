package billing

import "errors"

var (
	ErrCatalogNil     = errors.New("plan catalog cannot be nil")
	ErrGatewayNil     = errors.New("payment gateway cannot be nil")
	ErrInvalidConfig  = errors.New("invalid billing engine configuration")
	ErrAlreadyStarted = errors.New("billing engine already started")
	ErrNotStarted     = errors.New("billing engine not started")
)

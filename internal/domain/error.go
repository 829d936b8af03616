package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrForbidden          = errors.New("payment belongs to a different user")
	ErrInvalidReference   = errors.New("invalid payment reference")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrLockNotAcquired    = errors.New("verification already in progress for this reference")
	ErrGatewayCredentials = errors.New("payment gateway credentials are not configured")
)

// GatewayRejectedError is returned when the gateway is unreachable, reports a
// non-success transaction status, or refuses the verification outright. The
// gateway's own message is surfaced verbatim to the caller.
type GatewayRejectedError struct {
	Message string
}

func (e *GatewayRejectedError) Error() string {
	if e.Message == "" {
		return "payment gateway rejected the transaction"
	}
	return "payment gateway rejected the transaction: " + e.Message
}

// NewGatewayRejected wraps a gateway failure message.
func NewGatewayRejected(msg string) error { return &GatewayRejectedError{Message: msg} }

// IsGatewayRejected reports whether err is a gateway rejection.
func IsGatewayRejected(err error) bool {
	var gr *GatewayRejectedError
	return errors.As(err, &gr)
}

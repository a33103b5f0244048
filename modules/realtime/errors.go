package realtime

import "errors"

var (
	// ErrValidation marks malformed inbound event payloads. Reported via
	// ack; the connection stays open.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks actions the connection's identity may not
	// perform. Reported via ack; the connection stays open.
	ErrUnauthorized = errors.New("Unauthorized")

	// ErrOrderNotFound is returned when an order id resolves to nothing.
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound is returned when a product id resolves to nothing.
	ErrProductNotFound = errors.New("product not found")

	// ErrUserNotFound is returned when a user id resolves to nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientStock is returned when a stock decrement would take a
	// product below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition is returned for status changes outside the
	// order lifecycle whitelist.
	ErrInvalidTransition = errors.New("invalid status transition")
)

package service

import "errors"

// Validation failures: reported to the user, state unchanged.
var (
	ErrTooLong = errors.New("text exceeds the allowed length")
)

// Authorization failures: no state change.
var (
	ErrNotAdmin     = errors.New("admin rights required")
	ErrNotMainAdmin = errors.New("main admin rights required")
)

// Stale references: idempotent no-ops reported as informational.
var (
	ErrNotFound         = errors.New("no such item")
	ErrAlreadyProcessed = errors.New("item already processed")
	ErrNoSuchRequest    = errors.New("no such request")
	ErrNoSuchAdmin      = errors.New("no such admin")
)

// Economy and workflow conflicts.
var (
	ErrInsufficientFunds = errors.New("not enough coins")
	ErrAlreadyClaimed    = errors.New("a main admin already exists")
	ErrAlreadyAdmin      = errors.New("user is already an admin")
	ErrRequestPending    = errors.New("a request is already pending")
	ErrAlreadyPending    = errors.New("a coin request is already pending")
	ErrNoAdminsNotified  = errors.New("no admin could be notified")
)

// ErrDeliveryFailed marks an outbound send that did not reach its recipient.
// The triggering transaction decides per-case whether anything is rolled back.
var ErrDeliveryFailed = errors.New("delivery failed")

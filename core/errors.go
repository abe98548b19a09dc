package core

import (
	stderrors "errors"

	"outboxd/core/merkle"
)

var (
	// ErrNotInitialized is returned when an operation other than Initialize
	// is attempted before the outbox has been activated.
	ErrNotInitialized = stderrors.New("outbox: not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = stderrors.New("outbox: already initialized")

	// ErrHalted is returned once the outbox has entered the Failed state;
	// there is no recovery transition.
	ErrHalted = stderrors.New("outbox: halted")

	// ErrUnauthorized is returned when the caller lacks the required role
	// (owner or validator manager).
	ErrUnauthorized = stderrors.New("outbox: caller not authorized")

	// ErrMessageTooLarge is returned when a dispatch body exceeds
	// MaxMessageBodyBytes.
	ErrMessageTooLarge = stderrors.New("outbox: message body too large")

	// ErrEmptyTree is returned when a checkpoint is requested before any
	// message has been dispatched.
	ErrEmptyTree = stderrors.New("outbox: cannot checkpoint empty tree")

	// ErrZeroAddress is returned when the zero address is supplied where a
	// real principal is required.
	ErrZeroAddress = stderrors.New("outbox: zero address")

	// ErrTreeFull is returned when the accumulator has reached its
	// lifetime capacity.
	ErrTreeFull = merkle.ErrTreeFull
)

package domain

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")

	// ErrLinkNotFound and ErrLinkInactive come from link resolution. Entry points
	// collapse both into ErrInvalidLink so callers see one generic message.
	ErrLinkNotFound    = errors.New("link not found")
	ErrLinkInactive    = errors.New("link inactive")
	ErrInvalidLink     = errors.New("invalid link")
	ErrProgramInactive = errors.New("program inactive")
	ErrLinkExists      = errors.New("link already exists for affiliate and program")
	ErrLinkCodeTaken   = errors.New("link code already taken")

	ErrNoAttributionCode   = errors.New("no attribution code")
	ErrDuplicateConversion = errors.New("duplicate conversion")
	ErrInvalidTransition   = errors.New("invalid status transition")

	ErrIdempotencyConflict  = errors.New("idempotency conflict")
	ErrUnsupportedEventType = errors.New("unsupported event type")
	ErrInvalidEnvelope      = errors.New("invalid event envelope")
)

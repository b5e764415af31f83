package auth

import (
	"errors"
	"strings"
)

// Common errors returned by the authentication subsystem.
var (
	ErrDisabled       = errors.New("authentication disabled")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingToken   = errors.New("missing bearer token")
	ErrSubjectRevoked = errors.New("subject is disabled")
)

// Subject captures the caller identity attached to authenticated requests.
type Subject struct {
	Name     string
	Disabled bool
}

func (s *Subject) normalise() {
	if s == nil {
		return
	}
	s.Name = strings.TrimSpace(s.Name)
}

// Mode enumerates the supported authentication providers.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeAPIKey   Mode = "apikey"
)

// KeyDefinition binds an API key to a named caller.
type KeyDefinition struct {
	Key      string
	Name     string
	Disabled bool
}

// Config configures the authentication service.
type Config struct {
	Mode Mode
	Keys []KeyDefinition
}

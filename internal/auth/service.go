package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	loggerpkg "TrendMint/pkg/logger"
)

// Service validates API keys presented on incoming requests.
type Service struct {
	mode  Mode
	keys  map[string]*Subject
	audit *slog.Logger
}

// Option customises the service.
type Option func(*Service)

// WithAuditLogger overrides the audit log destination.
func WithAuditLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.audit = logger
	}
}

// NewService builds the authentication service from static key material.
func NewService(cfg Config, opts ...Option) *Service {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeDisabled
	}
	keys := make(map[string]*Subject, len(cfg.Keys))
	for _, def := range cfg.Keys {
		key := strings.TrimSpace(def.Key)
		if key == "" {
			continue
		}
		keys[key] = &Subject{Name: def.Name, Disabled: def.Disabled}
	}
	svc := &Service{mode: mode, keys: keys, audit: loggerpkg.Audit()}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Mode returns the configured authentication mode.
func (s *Service) Mode() Mode {
	if s == nil {
		return ModeDisabled
	}
	return s.mode
}

// AuthenticateRequest validates the Authorization header and returns the
// resolved subject.
func (s *Service) AuthenticateRequest(_ context.Context, header string) (*Subject, error) {
	if s == nil || s.mode == ModeDisabled {
		return nil, ErrDisabled
	}
	token := strings.TrimSpace(header)
	if token == "" {
		return nil, ErrMissingToken
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	for key, subject := range s.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			if subject.Disabled {
				return nil, ErrSubjectRevoked
			}
			return subject.clone(), nil
		}
	}
	return nil, ErrInvalidToken
}

func (s *Subject) clone() *Subject {
	if s == nil {
		return nil
	}
	return &Subject{Name: s.Name, Disabled: s.Disabled}
}

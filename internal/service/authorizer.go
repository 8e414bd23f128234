package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/models"
	"voltgate/internal/ocpp/protocol"
)

// TokenStore looks up identification tokens.
type TokenStore interface {
	FindByIDTag(ctx context.Context, idTag string) (*models.Token, error)
}

// SettingsStore reads the authorization-mode singleton.
type SettingsStore interface {
	AuthorizationSettings(ctx context.Context) (models.AuthorizationSettings, error)
}

// Decision is the outcome of validating an idTag. Status carries the OCPP
// idTagInfo vocabulary; Reason stays internal and keeps the rejection causes
// distinguishable even when they share an OCPP status.
type Decision struct {
	OK     bool
	Status string
	Reason string
}

// Authorizer validates identification tags against stored tokens and the
// mutable authorization-mode setting. Pure reads, no side effects.
type Authorizer struct {
	tokens   TokenStore
	settings SettingsStore
	logger   *zap.Logger
}

// NewAuthorizer returns the gate.
func NewAuthorizer(tokens TokenStore, settings SettingsStore, logger *zap.Logger) *Authorizer {
	return &Authorizer{tokens: tokens, settings: settings, logger: logger}
}

// Validate checks an idTag at the given instant. Settings are re-read on
// every call so administrative changes apply without restart.
func (a *Authorizer) Validate(ctx context.Context, idTag string, at time.Time) (Decision, error) {
	settings, err := a.settings.AuthorizationSettings(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("load authorization settings: %w", err)
	}

	// Deliberate operational bypass, not a fallback.
	if settings.AcceptAnyTag {
		a.logger.Debug("accepting tag in permissive mode", zap.String("id_tag", idTag))
		return Decision{OK: true, Status: protocol.AuthAccepted, Reason: "any tag mode enabled"}, nil
	}

	token, err := a.tokens.FindByIDTag(ctx, idTag)
	if err != nil {
		return Decision{}, fmt.Errorf("look up token: %w", err)
	}
	if token == nil {
		return Decision{Status: protocol.AuthInvalid, Reason: "unknown idTag"}, nil
	}

	switch token.Status {
	case models.TokenStatusBlocked, models.TokenStatusRevoked:
		return Decision{Status: protocol.AuthBlocked, Reason: fmt.Sprintf("token %s", token.Status)}, nil
	case models.TokenStatusExpired:
		return Decision{Status: protocol.AuthExpired, Reason: "token expired"}, nil
	}

	if token.ValidFrom != nil && at.Before(*token.ValidFrom) {
		return Decision{Status: protocol.AuthExpired, Reason: "token not yet valid"}, nil
	}
	if token.ValidTo != nil && at.After(*token.ValidTo) {
		return Decision{Status: protocol.AuthExpired, Reason: "token validity ended"}, nil
	}

	return Decision{OK: true, Status: protocol.AuthAccepted}, nil
}

// Package models defines data structures and domain types.
package models

import (
	"strings"
	"time"
)

// TokenSource identifies where a credential came from.
type TokenSource string

const (
	// SourceAutoDiscovered is a token read from a credentials file on disk.
	SourceAutoDiscovered TokenSource = "auto-discovered"
	// SourceManualOverride is a token supplied through settings or the environment.
	SourceManualOverride TokenSource = "manual-override"
)

// TokenKind identifies what a token can be used for.
type TokenKind string

const (
	// KindSubscriptionOAuth is a bearer token for the subscription usage endpoint.
	KindSubscriptionOAuth TokenKind = "subscription-oauth"
	// KindEnterpriseAdminKey is an organization admin key for the usage report endpoint.
	KindEnterpriseAdminKey TokenKind = "enterprise-admin-key"
	// KindPlainAPIKey is a regular API key. It cannot read usage data.
	KindPlainAPIKey TokenKind = "plain-api-key"
)

const (
	adminKeyPrefix = "sk-ant-admin-"
	apiKeyPrefix   = "sk-ant-"
)

// ClassifyToken returns the kind of a raw token value based on its prefix.
// The admin prefix is checked before the more general API key prefix.
func ClassifyToken(token string) TokenKind {
	switch {
	case strings.HasPrefix(token, adminKeyPrefix):
		return KindEnterpriseAdminKey
	case strings.HasPrefix(token, apiKeyPrefix):
		return KindPlainAPIKey
	default:
		return KindSubscriptionOAuth
	}
}

// Credential is a resolved token for a single refresh cycle.
type Credential struct {
	ExpiresAt *time.Time
	Token     string
	Source    TokenSource
	Kind      TokenKind
}

// IsExpired reports whether the credential carries an expiry that has passed.
func (c Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Masked returns the token with everything but a short prefix and suffix hidden.
func (c Credential) Masked() string {
	if len(c.Token) <= 12 {
		return strings.Repeat("•", len(c.Token))
	}
	return c.Token[:8] + "…" + c.Token[len(c.Token)-4:]
}

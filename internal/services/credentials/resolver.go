// Package credentials locates the token used to query usage, either from a
// manual override or from the credential file written by the Claude CLI.
package credentials

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/models"
)

const (
	credentialsFileName = ".credentials.json"
	accessTokenPath     = "claudeAiOauth.accessToken"
	expiresAtPath       = "claudeAiOauth.expiresAt"
)

// Resolver resolves the active credential. It holds no state beyond the
// candidate list and never touches usage history.
type Resolver struct {
	candidates []string
}

// NewResolver creates a resolver probing the given files in order. With no
// paths it probes DefaultCandidates.
func NewResolver(paths ...string) *Resolver {
	if len(paths) == 0 {
		paths = DefaultCandidates()
	}
	return &Resolver{candidates: paths}
}

// Candidates returns the credential files probed, in order.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Resolve returns the credential to use. A non-blank manual override always
// wins; otherwise the first readable, well-formed credential file with an
// access token is used. Failing both, it returns a no-token *models.UsageError.
func (r *Resolver) Resolve(manualOverride string) (models.Credential, error) {
	if token := strings.TrimSpace(manualOverride); token != "" {
		return models.Credential{
			Token:  token,
			Source: models.SourceManualOverride,
			Kind:   models.ClassifyToken(token),
		}, nil
	}

	for _, path := range r.candidates {
		cred, ok := readCredentialFile(path)
		if ok {
			logger.Debug("credential discovered", "path", path, "kind", cred.Kind)
			return cred, nil
		}
	}

	return models.Credential{}, models.NewUsageError(models.ErrNoToken,
		"could not find a Claude OAuth token; configure one with `cmeter configure-token` "+
			"or sign in with the Claude CLI")
}

// readCredentialFile parses one candidate. Missing, unreadable or malformed
// files are skipped.
func readCredentialFile(path string) (models.Credential, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("skipping unreadable credential file", "path", path, "error", err)
		}
		return models.Credential{}, false
	}

	if !gjson.ValidBytes(data) {
		logger.Debug("skipping malformed credential file", "path", path)
		return models.Credential{}, false
	}

	tok := gjson.GetBytes(data, accessTokenPath)
	if tok.Type != gjson.String || tok.String() == "" {
		return models.Credential{}, false
	}

	cred := models.Credential{
		Token:  tok.String(),
		Source: models.SourceAutoDiscovered,
		Kind:   models.ClassifyToken(tok.String()),
	}
	if exp := gjson.GetBytes(data, expiresAtPath); exp.Type == gjson.Number {
		t := time.UnixMilli(exp.Int())
		cred.ExpiresAt = &t
	}
	return cred, true
}

// DefaultCandidates returns the platform-conventional credential locations.
// CLAUDE_CONFIG_DIR, when set, is probed first.
func DefaultCandidates() []string {
	var paths []string

	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		paths = append(paths, filepath.Join(dir, credentialsFileName))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return paths
	}
	paths = append(paths, filepath.Join(home, ".claude", credentialsFileName))

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			paths = append(paths,
				filepath.Join(appData, "Claude", credentialsFileName),
				filepath.Join(appData, "claude", credentialsFileName),
			)
		}
	case "darwin":
		paths = append(paths, filepath.Join(home, "Library", "Application Support", "Claude", credentialsFileName))
	case "linux":
		paths = append(paths, filepath.Join(home, ".config", "claude", credentialsFileName))
	}

	return paths
}

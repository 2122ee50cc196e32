// Package version resolves the build version shown by `cmeter version` and
// sent in the API User-Agent.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

var (
	// These are set via ldflags at build time
	Version = ""
	Commit  = ""
	Date    = ""

	once sync.Once

	// Swapped in tests.
	readBuildInfo = debug.ReadBuildInfo
	gitOutput     = runGit
)

const (
	gitTimeout  = 2 * time.Second
	shortCommit = 12
)

// ensureInitialized fills whatever ldflags left empty, first from the
// module build info that `go install` embeds, then from git for source
// checkouts.
func ensureInitialized() {
	once.Do(func() {
		fromBuildInfo()

		if Commit == "" {
			Commit = gitOr("unknown", "describe", "--always", "--dirty")
		}
		if Version == "" {
			Version = strings.TrimPrefix(gitOr("dev", "describe", "--tags", "--abbrev=0"), "v")
		}
		if Date == "" {
			Date = time.Now().Format("2006-01-02")
		}
	})
}

func fromBuildInfo() {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return
	}

	if v := info.Main.Version; Version == "" && v != "" && v != "(devel)" {
		Version = strings.TrimPrefix(v, "v")
	}

	var revision, modified, vcsTime string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision[:min(len(revision), shortCommit)]
		if modified == "true" {
			Commit += "-dirty"
		}
	}
	if Date == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Date = t.Format("2006-01-02")
		}
	}
}

func gitOr(fallback string, args ...string) string {
	out, err := gitOutput(args...)
	if err != nil || out == "" {
		return fallback
	}
	return out
}

func runGit(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// Reset clears resolved values so they are computed again.
func Reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

// GetVersion returns the resolved version.
func GetVersion() string {
	ensureInitialized()
	return Version
}

// GetCommit returns the resolved commit.
func GetCommit() string {
	ensureInitialized()
	return Commit
}

// GetDate returns the build date.
func GetDate() string {
	ensureInitialized()
	return Date
}

// Info returns the full version line printed by `cmeter version`.
func Info() string {
	ensureInitialized()
	return fmt.Sprintf("cmeter %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent returns the User-Agent sent with API requests. It only uses the
// build-time version and never shells out.
func UserAgent() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	return "claude-meter/" + v
}

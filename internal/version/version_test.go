package version

import (
	"errors"
	"runtime/debug"
	"strings"
	"testing"
)

// stub replaces build info and git for one test.
func stub(t *testing.T, info *debug.BuildInfo, git map[string]string) {
	t.Helper()
	origInfo, origGit := readBuildInfo, gitOutput
	t.Cleanup(func() {
		readBuildInfo, gitOutput = origInfo, origGit
		Reset()
	})

	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	gitOutput = func(args ...string) (string, error) {
		out, ok := git[strings.Join(args, " ")]
		if !ok {
			return "", errors.New("not a git repository")
		}
		return out, nil
	}
	Reset()
}

func TestResolve(t *testing.T) {
	installed := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef1234567890abcd"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-10-01T10:00:00Z"},
		},
	}
	devel := &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}
	checkout := map[string]string{
		"describe --always --dirty":  "1a2b3c4",
		"describe --tags --abbrev=0": "v0.3.0",
	}

	tests := []struct {
		name        string
		info        *debug.BuildInfo
		git         map[string]string
		ldflags     [3]string
		wantVersion string
		wantCommit  string
		wantDate    string
	}{
		{
			name:        "go install",
			info:        installed,
			wantVersion: "0.4.1",
			wantCommit:  "abcdef123456-dirty",
			wantDate:    "2026-10-01",
		},
		{
			name:        "source checkout",
			info:        devel,
			git:         checkout,
			wantVersion: "0.3.0",
			wantCommit:  "1a2b3c4",
		},
		{
			name:        "nothing available",
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
		{
			name:        "ldflags win",
			info:        installed,
			git:         checkout,
			ldflags:     [3]string{"1.0.0", "feedface", "2026-09-30"},
			wantVersion: "1.0.0",
			wantCommit:  "feedface",
			wantDate:    "2026-09-30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub(t, tt.info, tt.git)
			Version, Commit, Date = tt.ldflags[0], tt.ldflags[1], tt.ldflags[2]

			if got := GetVersion(); got != tt.wantVersion {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVersion)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
			if tt.wantDate != "" && GetDate() != tt.wantDate {
				t.Errorf("GetDate() = %q, want %q", GetDate(), tt.wantDate)
			}
			if GetDate() == "" {
				t.Error("GetDate() should never be empty")
			}
		})
	}
}

func TestInfo(t *testing.T) {
	stub(t, nil, nil)
	Version, Commit, Date = "1.2.3", "abc", "2026-10-15"

	info := Info()
	if !strings.HasPrefix(info, "cmeter 1.2.3 (commit: abc, built: 2026-10-15, ") {
		t.Errorf("Info() = %q", info)
	}
}

func TestUserAgent(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = ""
	if got := UserAgent(); got != "claude-meter/dev" {
		t.Errorf("UserAgent() = %q, want %q", got, "claude-meter/dev")
	}
	Version = "1.2.3"
	if got := UserAgent(); got != "claude-meter/1.2.3" {
		t.Errorf("UserAgent() = %q, want %q", got, "claude-meter/1.2.3")
	}
}

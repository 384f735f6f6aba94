package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime, origGoVersion :=
		Version, GitCommit, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "0.0.1"
	GoVersion = ""

	info := GetVersionInfo()
	if info == nil {
		t.Fatal("expected non-nil Info")
	}
	if info.Version != "0.0.1" {
		t.Errorf("expected version '0.0.1', got %q", info.Version)
	}
	if info.GoVersion == "" {
		t.Error("expected Go version from build info")
	}
}

func TestGetVersionInfoWithLdflags(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	BuildTime = "2024-01-15T10:30:00Z"
	GitCommit = "abc1234"
	GoVersion = "go1.22.0"

	info := GetVersionInfo()
	if info.GitCommit != "abc1234" {
		t.Errorf("expected 'abc1234', got %q", info.GitCommit)
	}
	if info.GoVersion != "go1.22.0" {
		t.Errorf("expected 'go1.22.0', got %q", info.GoVersion)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestGetVersionInfoDirty(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0-dirty"

	if !GetVersionInfo().IsDirty {
		t.Error("expected dirty version to be flagged")
	}
}

func TestGetShortVersionWithCommit(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	GitCommit = "abc1234"

	sv := GetShortVersion()
	if !strings.HasPrefix(sv, "1.0.0-abc1234") {
		t.Errorf("expected '1.0.0-abc1234' prefix, got %q", sv)
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("got %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("got %q", got)
	}
}

func TestBanner(t *testing.T) {
	defer saveAndRestore()()
	Version = "0.0.1"
	GitCommit = "abc1234"

	if got := Banner("microcosm"); !strings.HasPrefix(got, "microcosm version 0.0.1") {
		t.Errorf("unexpected banner %q", got)
	}
}

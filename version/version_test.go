package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime, origGoVersion := Version, GitCommit, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, BuildTime, GoVersion = "dev", "", "", ""

	info := GetVersionInfo()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should fall back to the build info")
	}
}

func TestGetVersionInfoLinkTime(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	BuildTime = "2026-01-15T10:30:00Z"
	GitCommit = "abc1234def"
	GoVersion = "go1.25.0"

	info := GetVersionInfo()
	if !info.IsRelease {
		t.Error("1.2.0 should be a release")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit truncated to 'abc1234', got %q", info.GitCommit)
	}
	if info.BuildDate.Year() != 2026 {
		t.Errorf("unexpected build date %v", info.BuildDate)
	}
	if info.GoVersion != "go1.25.0" {
		t.Errorf("expected link-time GoVersion, got %q", info.GoVersion)
	}
}

func TestDirtyVersionIsNotRelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0-dirty"
	if GetVersionInfo().IsRelease {
		t.Error("dirty version should not be a release")
	}
}

func TestShort(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	GitCommit = "abc1234"

	got := Short()
	if !strings.HasPrefix(got, "1.2.0-abc1234") {
		t.Errorf("Short() = %q", got)
	}
}

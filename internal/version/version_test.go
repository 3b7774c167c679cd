package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesInjectedMetadata(t *testing.T) {
	originalVersion, originalCommit, originalDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = originalVersion, originalCommit, originalDate
	})

	Version = "1.2.3"
	Commit = "abc123"
	Date = "2026-02-18"

	got := String()
	require.Contains(t, got, "interpret 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-02-18")
	require.Contains(t, got, "go=go")
}

func TestFillFromBuildUsesVCSSettingsForUnsetFields(t *testing.T) {
	info := Info{Version: "dev", Commit: "none", Date: "unknown"}
	fillFromBuild(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		},
	})

	require.Equal(t, "v0.4.0", info.Version)
	require.Equal(t, "0123456789ab", info.Commit)
	require.Equal(t, "2026-10-01T12:00:00Z", info.Date)
}

func TestFillFromBuildKeepsInjectedValues(t *testing.T) {
	info := Info{Version: "1.0.0", Commit: "feedbee", Date: "2026-01-01"}
	fillFromBuild(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffffffffff"}},
	})

	require.Equal(t, Info{Version: "1.0.0", Commit: "feedbee", Date: "2026-01-01"}, info)
}

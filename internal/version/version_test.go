package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), Commit)
}

// TestAttachCobraVersionCommand prints Full through the attached subcommand.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "grid-pages"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, Full()+"\n", out.String())
}

// TestFull_ReflectsLinkerValues renders whatever the linker injected.
//
//nolint:paralleltest // Overrides package-level build metadata.
func TestFull_ReflectsLinkerValues(t *testing.T) {
	prevVersion, prevCommit, prevBuildTime := Version, Commit, BuildTime

	t.Cleanup(func() {
		Version, Commit, BuildTime = prevVersion, prevCommit, prevBuildTime
	})

	Version, Commit, BuildTime = "1.4.2", "abc1234", "2026-10-14T00:00:00Z"

	require.Equal(t, "1.4.2", Short())
	require.Equal(t, "grid-pages 1.4.2 (commit abc1234, built 2026-10-14T00:00:00Z)", Full())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDefault_IsValid ensures the built-in layout passes validation.
func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	layout := Default()
	require.NoError(t, Validate(layout))
	require.Equal(t, "/kiri/", layout.EntryPath)
	require.Len(t, layout.AssetTargets, 4)
	require.Contains(t, layout.Libraries, "kiri")
}

// TestValidate checks required fields and path restrictions.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	layout := Default()
	layout.OutDir = ""
	require.ErrorIs(t, Validate(layout), errEmptyPath)

	layout = Default()
	layout.AssetTargets = append(layout.AssetTargets, "../outside")
	require.ErrorIs(t, Validate(layout), errEscapesBundle)

	layout = Default()
	layout.AssetTargets = []string{"wasm", "wasm/nested"}
	require.ErrorIs(t, Validate(layout), errNestedPaths)

	layout = Default()
	layout.AssetTargets = []string{"lib/wasm", "lib/wasm"}
	require.ErrorIs(t, Validate(layout), errNestedPaths)

	layout = Default()
	layout.EntryPath = "kiri/"
	require.ErrorIs(t, Validate(layout), errBadEntryPath)
}

// TestLoad_MergesOverDefaults ensures YAML values override only what they name.
func TestLoad_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	contents := []byte("out_dir: build/pages\nlibraries: [kiri, mesh]\n")
	require.NoError(t, os.WriteFile(path, contents, DefaultFilePermissions))

	layout, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "build/pages", layout.OutDir)
	require.Equal(t, []string{"kiri", "mesh"}, layout.Libraries)
	require.Equal(t, Default().WebDir, layout.WebDir)
}

// TestLoad_MissingExplicitFile fails when the requested path does not exist.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoad_MalformedFile reports YAML errors.
func TestLoad_MalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("libraries: {"), DefaultFilePermissions))

	_, err := Load(path)
	require.Error(t, err)
}

// TestValidate_OutDirNesting rejects output directories that overlap their inputs.
func TestValidate_OutDirNesting(t *testing.T) {
	t.Parallel()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	cases := map[string]func(*Layout){
		"inside web":          func(l *Layout) { l.OutDir = filepath.Join("web", "dist") },
		"inside web absolute": func(l *Layout) { l.OutDir = filepath.Join(cwd, "web", "dist") },
		"equals web":          func(l *Layout) { l.OutDir = "web" },
		"contains web":        func(l *Layout) { l.WebDir = filepath.Join(DefaultOutDir, "web") },
		"contains sources":    func(l *Layout) { l.OutDir = "." },
		"inside library":      func(l *Layout) { l.OutDir = filepath.Join("src", "kiri", "out") },
		"inside asset dir":    func(l *Layout) { l.OutDir = filepath.Join("src", "wasm", "out") },
	}
	for name, mutate := range cases {
		layout := Default()
		mutate(layout)
		require.ErrorIs(t, Validate(layout), errNestedPaths, name)
	}

	// Siblings are fine.
	layout := Default()
	layout.OutDir = filepath.Join("build", "pages")
	require.NoError(t, Validate(layout))
}

package devices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, root, rel, contents string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

// TestAggregate_Example reproduces the two-category example tree.
func TestAggregate_Example(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProfile(t, root, "fdm/ender3.json", `{"bed":[220,220]}`)
	writeProfile(t, root, "sla/resin1.json", `{"laser":true}`)

	manifest, err := Aggregate(context.Background(), root)
	require.NoError(t, err)

	data, err := manifest.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"fdm":{"ender3":{"bed":[220,220]}},"sla":{"resin1":{"laser":true}}}`, string(data))
}

// TestAggregate_SkipsHiddenEmptyAndNested covers every ignored entry kind.
func TestAggregate_SkipsHiddenEmptyAndNested(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProfile(t, root, "fdm/ender3.json", `{}`)
	writeProfile(t, root, "fdm/.draft.json", `{}`)
	writeProfile(t, root, "fdm/vendor/nested.json", `{}`)
	writeProfile(t, root, ".git/config.json", `{}`)
	writeProfile(t, root, "README.md", `not a category`)
	writeProfile(t, root, "cnc/.keep", ``)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "laser"), 0o755))

	manifest, err := Aggregate(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, manifest.Categories, 1)
	require.Equal(t, "fdm", manifest.Categories[0].Type)
	require.Len(t, manifest.Categories[0].Profiles, 1)
	require.Equal(t, "ender3", manifest.Categories[0].Profiles[0].Name)
	require.Nil(t, manifest.Category("cnc"))
	require.Nil(t, manifest.Category("laser"))
	require.Nil(t, manifest.Category(".git"))
}

// TestAggregate_NameWithoutExtension keeps raw names and lets the later duplicate win.
func TestAggregate_NameWithoutExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProfile(t, root, "fdm/Prusa.MK4", `{"id":1}`)
	writeProfile(t, root, "fdm/foo", `{"from":"raw"}`)
	writeProfile(t, root, "fdm/foo.json", `{"from":"json"}`)

	manifest, err := Aggregate(context.Background(), root)
	require.NoError(t, err)

	require.NotNil(t, manifest.Profile("fdm", "Prusa.MK4"))
	// os.ReadDir lists "foo" before "foo.json".
	require.JSONEq(t, `{"from":"json"}`, string(manifest.Profile("fdm", "foo").Content))
}

// TestGenerate_ParseErrorLeavesManifestUntouched ensures no partial artifact is written.
func TestGenerate_ParseErrorLeavesManifestUntouched(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := filepath.Join(base, "dev")
	outFile := filepath.Join(base, "pack", "kiri-devs.js")

	writeProfile(t, root, "fdm/good.json", `{"ok":true}`)
	writeProfile(t, root, "fdm/broken.json", `{"bed":`)
	writeProfile(t, base, "pack/kiri-devs.js", "previous")

	_, err := Generate(context.Background(), root, outFile)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, filepath.Join(root, "fdm", "broken.json"), parseErr.Path)

	contents, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "previous", string(contents))
}

// TestGenerate_WritesModule checks the exact artifact format and directory creation.
func TestGenerate_WritesModule(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := filepath.Join(base, "dev")
	outFile := filepath.Join(base, "src", "pack", "kiri-devs.js")

	writeProfile(t, root, "fdm/ender3.json", "{\n  \"bed\": [220, 220]\n}\n")

	manifest, err := Generate(context.Background(), root, outFile)
	require.NoError(t, err)
	require.Equal(t, 1, manifest.Len())

	contents, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "export const devices = {\"fdm\":{\"ender3\":{\"bed\":[220,220]}}};\n", string(contents))
}

// TestGenerate_EmptyRoot writes an empty manifest.
func TestGenerate_EmptyRoot(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	outFile := filepath.Join(base, "kiri-devs.js")

	_, err := Generate(context.Background(), base, outFile)
	require.NoError(t, err)

	contents, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "export const devices = {};\n", string(contents))
}

// TestAggregate_MissingRoot fails.
func TestAggregate_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Aggregate(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestAggregate_ByteOrderMark accepts profiles saved with a leading UTF-8 BOM.
func TestAggregate_ByteOrderMark(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProfile(t, root, "fdm/a.json", "\xef\xbb\xbf{\"x\":1}")
	writeProfile(t, root, "fdm/b.json", "\xef\xbb\xbf\xef\xbb\xbf{}")

	_, err := Aggregate(context.Background(), root)
	require.Error(t, err, "only one BOM is stripped")

	require.NoError(t, os.Remove(filepath.Join(root, "fdm", "b.json")))

	manifest, err := Aggregate(context.Background(), root)
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1}`, string(manifest.Profile("fdm", "a").Content))

	data, err := manifest.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `{"fdm":{"a":{"x":1}}}`, string(data))
}

// TestProfileName strips only the recognized suffix.
func TestProfileName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ender3", ProfileName("ender3.json"))
	require.Equal(t, "ender3", ProfileName("ender3"))
	require.Equal(t, "ender3.json5", ProfileName("ender3.json5"))
	require.Equal(t, "a.json", ProfileName("a.json.json"))
}

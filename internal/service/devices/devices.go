package devices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridspace/grid-pages/internal/config"
	"github.com/gridspace/grid-pages/internal/domain/device"
	"github.com/gridspace/grid-pages/internal/fsutil"
	"github.com/gridspace/grid-pages/internal/logger"
)

const (
	// ProfileExtension is stripped from file names to derive profile names.
	ProfileExtension = ".json"

	// hiddenPrefix marks entries ignored at both directory levels.
	hiddenPrefix = "."

	// exportPrefix and exportSuffix wrap the manifest JSON into an ES module.
	exportPrefix = "export const devices = "
	exportSuffix = ";\n"
)

// utf8BOM is stripped from the start of a profile before parsing.
//
//nolint:gochecknoglobals // Read-only byte sequence.
var utf8BOM = []byte("\xef\xbb\xbf")

// ParseError reports a profile whose content is not valid JSON.
type ParseError struct {
	// Path is the offending profile file.
	Path string
	// Err is the underlying decoder error.
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse device profile %s: %v", e.Path, e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Generate aggregates root and writes the manifest module to outFile.
func Generate(ctx context.Context, root, outFile string) (*device.Manifest, error) {
	ctx = logger.WithName(ctx, "devices")

	manifest, err := Aggregate(ctx, root)
	if err != nil {
		return nil, err
	}

	if err = Write(ctx, manifest, outFile); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Device pack written",
		"path", outFile,
		"categories", len(manifest.Categories),
		"profiles", manifest.Len(),
	)

	return manifest, nil
}

// Aggregate reads every profile under root into a manifest.
// Entries are visited in directory-listing order; empty categories are omitted.
func Aggregate(ctx context.Context, root string) (*device.Manifest, error) {
	types, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read device root: %w", err)
	}

	manifest := device.NewManifest()

	for _, entry := range types {
		if strings.HasPrefix(entry.Name(), hiddenPrefix) {
			continue
		}

		typePath := filepath.Join(root, entry.Name())

		isDir, err := isDirectory(typePath)
		if err != nil {
			return nil, err
		}

		if !isDir {
			continue
		}

		profiles, err := readCategory(ctx, entry.Name(), typePath)
		if err != nil {
			return nil, err
		}

		for _, profile := range profiles {
			manifest.Add(profile)
		}
	}

	return manifest, nil
}

// Render returns the manifest as an ES module exporting a `devices` constant.
func Render(manifest *device.Manifest) ([]byte, error) {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	var buf bytes.Buffer

	buf.Grow(len(exportPrefix) + len(data) + len(exportSuffix))
	buf.WriteString(exportPrefix)
	buf.Write(data)
	buf.WriteString(exportSuffix)

	return buf.Bytes(), nil
}

// Write renders manifest and replaces outFile with it.
func Write(ctx context.Context, manifest *device.Manifest, outFile string) error {
	contents, err := Render(manifest)
	if err != nil {
		return err
	}

	if err = fsutil.EnsureDir(filepath.Dir(outFile)); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Writing device pack", "path", outFile, "bytes", len(contents))

	if err = fsutil.WriteFileAtomic(outFile, contents, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write device pack: %w", err)
	}

	return nil
}

// ProfileName strips ProfileExtension from a file name when present.
func ProfileName(fileName string) string {
	if name, ok := strings.CutSuffix(fileName, ProfileExtension); ok {
		return name
	}

	return fileName
}

// readCategory parses the direct file children of typePath.
func readCategory(ctx context.Context, typ, typePath string) ([]*device.Profile, error) {
	entries, err := os.ReadDir(typePath)
	if err != nil {
		return nil, fmt.Errorf("read device category %s: %w", typ, err)
	}

	profiles := make([]*device.Profile, 0, len(entries))

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), hiddenPrefix) {
			continue
		}

		entryPath := filepath.Join(typePath, entry.Name())

		isDir, err := isDirectory(entryPath)
		if err != nil {
			return nil, err
		}

		if isDir {
			continue
		}

		content, err := readProfile(entryPath)
		if err != nil {
			return nil, err
		}

		profiles = append(profiles, &device.Profile{
			Type:    typ,
			Name:    ProfileName(entry.Name()),
			Content: content,
		})
	}

	logger.DebugKV(ctx, "Read device category", "type", typ, "profiles", len(profiles))

	return profiles, nil
}

func readProfile(path string) (json.RawMessage, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read device profile: %w", err)
	}

	var content json.RawMessage
	if err = json.Unmarshal(bytes.TrimPrefix(contents, utf8BOM), &content); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return content, nil
}

// isDirectory follows symlinks.
func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	return info.IsDir(), nil
}

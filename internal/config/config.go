package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceMap pairs a development sourcemap with its location inside the bundle.
type SourceMap struct {
	// Source is the sourcemap path relative to the working directory.
	Source string `yaml:"src"`
	// Destination is the target path relative to the bundle root.
	Destination string `yaml:"dst"`
}

// Layout holds every path and name the build steps depend on.
type Layout struct {
	// DevicesDir is the root of the <type>/<name>.json device profile tree.
	DevicesDir string `yaml:"devices_dir"`
	// ManifestFile is the generated JavaScript module holding all device profiles.
	ManifestFile string `yaml:"manifest_file"`
	// WebDir is the static asset tree copied verbatim into the bundle root.
	WebDir string `yaml:"web_dir"`
	// SourceDir is the library root; Libraries and AssetDir are resolved against it.
	SourceDir string `yaml:"source_dir"`
	// OutDir is the bundle directory, cleared on every assembly.
	OutDir string `yaml:"out_dir"`
	// Libraries lists the SourceDir subdirectories staged under <OutDir>/lib.
	Libraries []string `yaml:"libraries"`
	// EntryPath is the URL the synthesized index.html redirects to.
	EntryPath string `yaml:"entry_path"`
	// AssetDir names the SourceDir subdirectory replicated into AssetTargets.
	AssetDir string `yaml:"asset_dir"`
	// AssetTargets are bundle-relative directories receiving copies of AssetDir.
	AssetTargets []string `yaml:"asset_targets"`
	// SourceMaps are optional development files copied into the bundle.
	SourceMaps []SourceMap `yaml:"source_maps"`
}

const (
	// DefaultConfigFilename is picked up from the working directory when no path is given.
	DefaultConfigFilename = "grid-pages.yaml"

	// DefaultOutDir is the bundle directory used by build and serve.
	DefaultOutDir = "dist-pages"

	// DefaultFilePermissions is used for generated files.
	DefaultFilePermissions os.FileMode = 0o644
)

var (
	errLayoutIsNotSet = errors.New("layout is not set")
	errEmptyPath      = errors.New("path must be provided")
	errEscapesBundle  = errors.New("path escapes the bundle directory")
	errBadEntryPath   = errors.New("entry path must start with /")
	errNestedPaths    = errors.New("paths must not contain each other")
)

// Default returns the layout of a grid-apps checkout.
func Default() *Layout {
	return &Layout{
		DevicesDir:   filepath.Join("src", "kiri", "dev"),
		ManifestFile: filepath.Join("src", "pack", "kiri-devs.js"),
		WebDir:       "web",
		SourceDir:    "src",
		OutDir:       DefaultOutDir,
		Libraries: []string{
			"add", "data", "ext", "geo", "kiri", "load",
			"main", "mesh", "moto", "pack", "wasm",
		},
		EntryPath: "/kiri/",
		AssetDir:  "wasm",
		AssetTargets: []string{
			"wasm",
			filepath.Join("lib", "wasm"),
			filepath.Join("lib", "kiri", "wasm"),
			filepath.Join("kiri", "wasm"),
		},
		SourceMaps: []SourceMap{
			{
				Source:      filepath.Join("node_modules", "three-mesh-bvh", "build", "index.module.js.map"),
				Destination: filepath.Join("lib", "ext", "index.module.js.map"),
			},
			{
				Source:      filepath.Join("node_modules", "@tracespace", "parser", "umd", "parser.js.map"),
				Destination: filepath.Join("lib", "ext", "parser.js.map"),
			},
		},
	}
}

// Load reads a YAML layout from path over Default and validates the result.
// An empty path falls back to DefaultConfigFilename, which may be absent.
func Load(path string) (*Layout, error) {
	layout := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, layout); err != nil {
			return nil, fmt.Errorf("unmarshal layout %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read layout: %w", err)
	}

	if err = Validate(layout); err != nil {
		return nil, err
	}

	return layout, nil
}

// Validate checks required fields and that bundle-relative paths stay inside OutDir.
func Validate(layout *Layout) error {
	if layout == nil {
		return errLayoutIsNotSet
	}

	required := map[string]string{
		"devices_dir":   layout.DevicesDir,
		"manifest_file": layout.ManifestFile,
		"web_dir":       layout.WebDir,
		"source_dir":    layout.SourceDir,
		"out_dir":       layout.OutDir,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", name, errEmptyPath)
		}
	}

	if !strings.HasPrefix(layout.EntryPath, "/") {
		return fmt.Errorf("%q: %w", layout.EntryPath, errBadEntryPath)
	}

	for _, name := range layout.Libraries {
		if err := checkRelative(name); err != nil {
			return fmt.Errorf("library %q: %w", name, err)
		}
	}

	for _, target := range layout.AssetTargets {
		if err := checkRelative(target); err != nil {
			return fmt.Errorf("asset target %q: %w", target, err)
		}
	}

	// Libraries and asset targets are copied concurrently, so they must be disjoint.
	if err := checkDisjoint(layout.Libraries); err != nil {
		return fmt.Errorf("libraries: %w", err)
	}

	if err := checkDisjoint(layout.AssetTargets); err != nil {
		return fmt.Errorf("asset targets: %w", err)
	}

	if err := checkOutDir(layout); err != nil {
		return err
	}

	for _, sm := range layout.SourceMaps {
		if err := checkRelative(sm.Destination); err != nil {
			return fmt.Errorf("sourcemap destination %q: %w", sm.Destination, err)
		}
	}

	return nil
}

// checkRelative rejects empty, absolute and parent-escaping bundle paths.
func checkRelative(p string) error {
	if strings.TrimSpace(p) == "" {
		return errEmptyPath
	}

	if filepath.IsAbs(p) || !filepath.IsLocal(p) {
		return errEscapesBundle
	}

	return nil
}

// checkOutDir rejects an OutDir that would be copied into itself or whose clearing deletes inputs.
func checkOutDir(layout *Layout) error {
	if nestedAbs(layout.WebDir, layout.OutDir) || nestedAbs(layout.OutDir, layout.WebDir) {
		return fmt.Errorf("out_dir %q and web_dir %q: %w", layout.OutDir, layout.WebDir, errNestedPaths)
	}

	for name, input := range map[string]string{
		"source_dir":  layout.SourceDir,
		"devices_dir": layout.DevicesDir,
	} {
		if nestedAbs(layout.OutDir, input) {
			return fmt.Errorf("out_dir %q contains %s %q: %w", layout.OutDir, name, input, errNestedPaths)
		}
	}

	sources := append([]string{layout.AssetDir}, layout.Libraries...)
	for _, name := range sources {
		if name == "" {
			continue
		}

		if src := filepath.Join(layout.SourceDir, name); nestedAbs(src, layout.OutDir) {
			return fmt.Errorf("out_dir %q inside %q: %w", layout.OutDir, src, errNestedPaths)
		}
	}

	return nil
}

// nestedAbs is contains on absolute forms, so relative and absolute paths compare.
func nestedAbs(parent, child string) bool {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return false
	}

	absChild, err := filepath.Abs(child)
	if err != nil {
		return false
	}

	return contains(absParent, absChild)
}

func checkDisjoint(paths []string) error {
	for i, a := range paths {
		for _, b := range paths[i+1:] {
			if contains(a, b) || contains(b, a) {
				return fmt.Errorf("%q and %q: %w", a, b, errNestedPaths)
			}
		}
	}

	return nil
}

// contains reports whether child is parent or lies inside it.
func contains(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}

	return filepath.IsLocal(rel) || rel == "."
}

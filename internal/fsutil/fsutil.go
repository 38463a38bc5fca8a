package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// DirMode is used for every directory created while staging.
	DirMode os.FileMode = 0o755

	// maxTreeDepth bounds recursion through symlinked directory cycles.
	maxTreeDepth = 64
)

// Outcome reports what TryCopy did.
type Outcome int

const (
	// Skipped means the source did not exist and nothing was written.
	Skipped Outcome = iota
	// Copied means the source was copied to the destination.
	Copied
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o == Copied {
		return "copied"
	}

	return "skipped"
}

var (
	errTreeTooDeep = errors.New("directory tree too deep, possible symlink cycle")
	errNotRegular  = errors.New("not a regular file")
)

// Exists reports whether path exists, following symlinks.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}

	return nil
}

// EmptyDir removes every child of path, creating path if it is absent.
func EmptyDir(path string) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", path, err)
	}

	for _, entry := range entries {
		if err = os.RemoveAll(filepath.Join(path, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// CopyFile copies the contents and permission bits of src to dst, replacing dst.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", src, errNotRegular)
	}

	return copyRegular(src, dst, info.Mode().Perm())
}

// CopyTree copies src into dst, merging with whatever dst already holds.
// Symbolic links are resolved and their targets copied.
func CopyTree(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.IsDir() {
		if err = EnsureDir(filepath.Dir(dst)); err != nil {
			return err
		}

		return CopyFile(src, dst)
	}

	return copyDir(ctx, src, dst, 0)
}

// TryCopy copies src to dst if src exists and reports Skipped otherwise.
// Directory sources are copied with CopyTree; missing destination parents are created.
func TryCopy(ctx context.Context, src, dst string) (Outcome, error) {
	ok, err := Exists(src)
	if err != nil {
		return Skipped, err
	}

	if !ok {
		return Skipped, nil
	}

	if err = CopyTree(ctx, src, dst); err != nil {
		return Skipped, err
	}

	return Copied, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	tmpName := tmp.Name()

	// No-op once the rename succeeded.
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write %s: %w", tmpName, err)
	}

	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	return nil
}

func copyDir(ctx context.Context, src, dst string, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("%s: %w", src, errTreeTooDeep)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := EnsureDir(dst); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		// Stat instead of entry.Info so symlinks are followed.
		info, err := os.Stat(from)
		if err != nil {
			return fmt.Errorf("stat %s: %w", from, err)
		}

		switch {
		case info.IsDir():
			err = copyDir(ctx, from, to, depth+1)
		case info.Mode().IsRegular():
			err = copyRegular(from, to, info.Mode().Perm())
		default:
			// Sockets, devices and pipes have no place in a static bundle.
			continue
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func copyRegular(src, dst string, perm os.FileMode) (err error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	// Remove first so a symlink left at dst is replaced, not written through.
	if err = os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", dst, err)
	}

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, closeErr)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	return nil
}

package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"
	"gopkg.in/yaml.v3"
)

const (
	// Suffix is appended to the guarded directory to name its lock file.
	Suffix = ".lock"

	// DefaultStaleAfter is how long a lock is honored without a Refresh, even if its PID is alive.
	DefaultStaleAfter = 10 * time.Minute

	filePermissions os.FileMode = 0o644

	// reclaimSuffix names the guard file held while a stale lock is replaced.
	reclaimSuffix = ".reclaim"

	// guardLifetime is how long a reclaim guard is honored before it counts as abandoned.
	guardLifetime = 30 * time.Second
)

// ErrLocked is returned when another live build holds the lock.
var ErrLocked = errors.New("bundle directory is locked by another build")

// Owner is the content of a lock file.
type Owner struct {
	// PID is the process id of the build holding the lock.
	PID int `yaml:"pid"`
	// Hostname is the machine the build runs on.
	Hostname string `yaml:"hostname"`
	// AcquiredAt is when the lock was taken.
	AcquiredAt time.Time `yaml:"acquired_at"`
}

// FileLock is an acquired lock. Release removes it.
type FileLock struct {
	// path is the lock file location.
	path string
	// owner is what was written on acquire.
	owner Owner
}

// processAlive reports whether pid refers to a running process.
// It is a variable so tests can simulate dead owners.
//
//nolint:gochecknoglobals // Swapped in tests only.
var processAlive = func(pid int) (bool, error) {
	process, err := ps.FindProcess(pid)
	if err != nil {
		return false, err
	}

	return process != nil, nil
}

// PathFor returns the lock file path guarding dir.
func PathFor(dir string) string {
	return filepath.Clean(dir) + Suffix
}

// Acquire takes the lock for dir, reclaiming it once if the current holder is stale.
func Acquire(dir string, staleAfter time.Duration) (*FileLock, error) {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("detect hostname: %w", err)
	}

	l := &FileLock{
		path: PathFor(dir),
		owner: Owner{
			PID:        os.Getpid(),
			Hostname:   hostname,
			AcquiredAt: time.Now().UTC(),
		},
	}

	err = l.create()
	if err == nil {
		return l, nil
	}

	if !errors.Is(err, fs.ErrExist) {
		return nil, err
	}

	return l.reclaim(hostname, staleAfter)
}

// reclaim replaces a stale lock. Takeovers are serialized through a guard file,
// so a racing build re-checks staleness only after the winner's lock is in place.
func (l *FileLock) reclaim(hostname string, staleAfter time.Duration) (*FileLock, error) {
	guard := l.path + reclaimSuffix

	if err := createGuard(guard); err != nil {
		return nil, err
	}

	defer func() {
		_ = os.Remove(guard)
	}()

	stale, err := isStale(l.path, hostname, staleAfter)
	if err != nil {
		return nil, err
	}

	if !stale {
		return nil, ErrLocked
	}

	if err = os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale lock: %w", err)
	}

	if err = l.create(); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrLocked
		}

		return nil, err
	}

	return l, nil
}

// createGuard takes the reclaim guard, clearing one left behind by a crashed build.
func createGuard(path string) error {
	for attempt := 0; ; attempt++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
		if err == nil {
			return file.Close()
		}

		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create reclaim guard: %w", err)
		}

		info, statErr := os.Stat(path)
		if attempt > 0 || statErr != nil || time.Since(info.ModTime()) <= guardLifetime {
			return ErrLocked
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale reclaim guard: %w", err)
		}
	}
}

// Refresh bumps the lock's modification time so a long build is not taken for stale.
func (l *FileLock) Refresh() error {
	now := time.Now()

	if err := os.Chtimes(l.path, now, now); err != nil {
		return fmt.Errorf("refresh lock: %w", err)
	}

	return nil
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// Release removes the lock file if it still belongs to this lock.
func (l *FileLock) Release() error {
	current, err := readOwner(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	if current.PID != l.owner.PID || current.Hostname != l.owner.Hostname {
		return nil
	}

	if err = os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock: %w", err)
	}

	return nil
}

func (l *FileLock) create() error {
	data, err := yaml.Marshal(&l.owner)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		_ = file.Close()

		return fmt.Errorf("write lock: %w", err)
	}

	return file.Close()
}

func readOwner(path string) (*Owner, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var owner Owner
	if err = yaml.Unmarshal(contents, &owner); err != nil {
		return nil, fmt.Errorf("decode lock: %w", err)
	}

	return &owner, nil
}

// isStale decides whether an existing lock may be taken over.
func isStale(path, hostname string, staleAfter time.Duration) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("stat lock: %w", err)
	}

	expired := time.Since(info.ModTime()) > staleAfter

	owner, err := readOwner(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}

	if err != nil || owner.PID <= 0 {
		// Half-written or foreign file.
		return expired, nil
	}

	if owner.Hostname != hostname {
		return expired, nil
	}

	if expired {
		// The PID may have been reused by an unrelated process.
		return true, nil
	}

	alive, err := processAlive(owner.PID)
	if err != nil {
		return false, fmt.Errorf("look up lock owner: %w", err)
	}

	return !alive, nil
}

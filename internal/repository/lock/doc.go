// Package lock guards a bundle directory against concurrent builds.
//
// The lock is a small YAML file next to the directory recording the owning
// PID and host. Locks whose owner process is gone are reclaimed.
package lock

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const lockName = ".worktracker_agent.lock"

var errAlreadyRunning = errors.New("another instance is running")

// processAlive is swapped in tests.
var processAlive = pidAlive

// acquireLock creates the per-user lock file and returns its release func.
// A lock left by a process that no longer exists is taken over.
func acquireLock(dir string) (func(), error) {
	path := filepath.Join(dir, lockName)
	release, err := createLock(path)
	if !errors.Is(err, os.ErrExist) {
		return release, err
	}

	pid, ok := lockOwner(path)
	if ok && processAlive(pid) {
		return nil, fmt.Errorf("%w (pid %d, lock %s)", errAlreadyRunning, pid, path)
	}
	log.Printf("[agent] removing stale lock %s", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	release, err = createLock(path)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w (lock %s)", errAlreadyRunning, path)
	}
	return release, err
}

func createLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		os.Remove(path)
		return nil, err
	}
	return func() { os.Remove(path) }, nil
}

// lockOwner reads the pid stored in the lock file.
func lockOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidFile is a written PID file, optionally held under an exclusive flock
// for as long as the server runs.
type pidFile struct {
	path string
	file *os.File
}

// acquirePIDFile writes the current PID to path. With lock set, a file left
// by a process that is still alive is refused, and one left by a dead
// process is taken over.
func acquirePIDFile(path string, lock bool) (*pidFile, error) {
	if lock {
		if pid, alive, err := pidOwner(path); err != nil {
			return nil, err
		} else if alive {
			return nil, fmt.Errorf("PID file %s held by running process %d", path, pid)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open PID file: %w", err)
	}
	if lock {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return nil, errors.New("cannot acquire lock: another instance is running")
			}
			return nil, fmt.Errorf("lock failed: %w", err)
		}
	}

	// Truncate only once the lock is ours so a live owner's PID is never wiped
	pf := &pidFile{path: path, file: file}
	if err := file.Truncate(0); err == nil {
		_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
		if err == nil {
			err = file.Sync()
		}
		if err == nil {
			return pf, nil
		}
	}
	pf.Release()
	return nil, fmt.Errorf("cannot write PID file %s", path)
}

// Release closes the file, which drops the lock, and removes it.
func (p *pidFile) Release() {
	p.file.Close()
	os.Remove(p.path)
}

// pidOwner reads the PID recorded in path and probes it with signal 0.
// A missing file has no owner.
func pidOwner(path string) (pid int, alive bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cannot read existing PID file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return 0, false, nil
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false, fmt.Errorf("corrupted PID file (contains: %q)", data)
	}

	// FindProcess never fails on Unix
	proc, _ := os.FindProcess(pid)
	switch err := proc.Signal(syscall.Signal(0)); {
	case err == nil:
		return pid, true, nil
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return pid, false, nil
	default:
		return pid, false, fmt.Errorf("process %d exists but cannot verify ownership: %v", pid, err)
	}
}

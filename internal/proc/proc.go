// Package proc runs and supervises external subprocesses. Both the AI CLI
// adapter and the editor driver launch commands through it so that every
// child lives in its own process group and gets torn down on shutdown.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
)

// Command creates an exec.Cmd whose child runs in its own process group.
// Killing the negative pid then reaps the whole subprocess tree, not just
// the immediate child.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return cmd
}

// Run starts cmd, drains stdout and stderr concurrently, and waits for it
// to exit. Both pipes are read in their own goroutines and fully drained
// before Wait is called; a child that writes more than a pipe buffer of
// output cannot deadlock the caller.
//
// If mgr is non-nil the process is tracked for the duration of the run.
func Run(ctx context.Context, cmd *exec.Cmd, mgr *Manager) (stdout, stderr []byte, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	if mgr != nil {
		mgr.Track(cmd)
		defer mgr.Untrack(cmd)
	}

	var wg sync.WaitGroup
	var outBuf, errBuf bytes.Buffer
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&outBuf, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&errBuf, stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	stdout = outBuf.Bytes()
	stderr = errBuf.Bytes()
	if waitErr != nil {
		if len(stderr) > 0 {
			return stdout, stderr, fmt.Errorf("%s failed: %w (stderr: %s)", cmd.Path, waitErr, stderr)
		}
		return stdout, stderr, fmt.Errorf("%s failed: %w", cmd.Path, waitErr)
	}
	return stdout, stderr, nil
}

// KillGroup sends SIGKILL to the entire process group of cmd.
func KillGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill process group %d: %w", cmd.Process.Pid, err)
	}
	return nil
}

// Manager tracks running subprocesses so that shutdown can terminate all of
// them. Typically wired to signal.NotifyContext in main:
//
//	go func() {
//		<-ctx.Done()
//		mgr.KillAll()
//	}()
type Manager struct {
	mu    sync.Mutex
	procs map[int]*exec.Cmd
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{procs: make(map[int]*exec.Cmd)}
}

// Track registers a started subprocess. Callers must invoke it after
// cmd.Start, when cmd.Process is populated.
func (m *Manager) Track(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procs[cmd.Process.Pid] = cmd
}

// Untrack removes a subprocess after its Wait has returned.
func (m *Manager) Untrack(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.procs, cmd.Process.Pid)
}

// KillAll terminates every tracked subprocess group.
func (m *Manager) KillAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for pid, cmd := range m.procs {
		if err := KillGroup(cmd); err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("killing processes: %v", errs)
	}
	return nil
}

// Count reports how many subprocesses are currently tracked.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.procs)
}

// Package session spawns and supervises fixer coding-agent subprocesses.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// Process is a running agent subprocess.
type Process interface {
	// Recv delivers subprocess stdout lines until the process exits.
	Recv() <-chan string
	// Done closes when the process has exited.
	Done() <-chan struct{}
	// PID returns the subprocess PID.
	PID() int
	// ExitErr returns the process exit error, valid after Done closes.
	ExitErr() error
	// Stop terminates the process group.
	Stop()
}

// Spawner launches agent subprocesses. The scheduler consumes this
// interface so tests can substitute a fake.
type Spawner interface {
	Spawn(ctx context.Context, workDir, prompt string) (Process, error)
}

// ClaudeSpawner implements Spawner by launching the claude CLI one-shot:
// the prompt is passed via -p, the process works in the workspace worktree,
// and exits when done.
type ClaudeSpawner struct {
	Binary string // path to claude binary; defaults to "claude"
}

// Spawn starts a claude subprocess in workDir.
func (s *ClaudeSpawner) Spawn(ctx context.Context, workDir, prompt string) (Process, error) {
	binary := s.Binary
	if binary == "" {
		binary = "claude"
	}
	if workDir == "" {
		return nil, fmt.Errorf("session: workDir is required")
	}
	if prompt == "" {
		return nil, fmt.Errorf("session: prompt is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, binary,
		"--dangerously-skip-permissions",
		"--output-format", "text",
		"-p", prompt,
	)
	cmd.Dir = workDir

	// Use a process group so SIGTERM kills the entire tree (shell + children).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("session: stdout pipe: %w", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("session: start %s: %w", binary, err)
	}

	proc := &claudeProcess{
		cancel: cancel,
		pid:    cmd.Process.Pid,
		recvCh: make(chan string, 64),
		doneCh: make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024) // 1MB buffer
		for scanner.Scan() {
			proc.recvCh <- scanner.Text()
		}
		close(proc.recvCh)
		proc.exitErr = cmd.Wait()
		close(proc.doneCh)
	}()

	return proc, nil
}

type claudeProcess struct {
	cancel  context.CancelFunc
	pid     int
	exitErr error
	recvCh  chan string
	doneCh  chan struct{}
}

func (p *claudeProcess) Recv() <-chan string   { return p.recvCh }
func (p *claudeProcess) Done() <-chan struct{} { return p.doneCh }
func (p *claudeProcess) PID() int              { return p.pid }

func (p *claudeProcess) ExitErr() error {
	select {
	case <-p.doneCh:
		return p.exitErr
	default:
		return nil
	}
}

func (p *claudeProcess) Stop() { p.cancel() }

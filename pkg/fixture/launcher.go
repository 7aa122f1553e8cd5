package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ProcessLauncher starts the system under test as a child process. The
// process must listen on BaseURL; combine with WithHealthCheck so Start waits
// for it to become ready.
type ProcessLauncher struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
	BaseURL string

	// GracePeriod is how long shutdown waits after SIGTERM before killing.
	GracePeriod time.Duration
}

// Launch implements Launcher.
func (p *ProcessLauncher) Launch(ctx context.Context) (string, func(context.Context) error, error) {
	if p.Command == "" {
		return "", nil, errors.New("process launcher has no command")
	}
	if p.BaseURL == "" {
		return "", nil, errors.New("process launcher has no base URL")
	}

	cmd := exec.Command(p.Command, p.Args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Dir = p.Dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("starting %s: %w", p.Command, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	grace := p.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}

	shutdown := func(ctx context.Context) error {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-done:
			return nil
		case <-time.After(grace):
		case <-ctx.Done():
		}
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("killing %s: %w", p.Command, err)
		}
		<-done
		return nil
	}

	return p.BaseURL, shutdown, nil
}

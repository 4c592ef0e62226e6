// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// ErrNotStarted is returned by Signal before the process runs.
var ErrNotStarted = errors.New("process not started")

// cmdProcess adapts a started exec.Cmd to Process.
type cmdProcess struct {
	cmd *exec.Cmd

	once sync.Once
	code ExitCode
	err  error
}

func startCmd(cmd *exec.Cmd) (*cmdProcess, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cmd.Path, err)
	}
	return &cmdProcess{cmd: cmd}, nil
}

// Wait implements Process. It may be called more than once.
func (p *cmdProcess) Wait() (ExitCode, error) {
	p.once.Do(func() {
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
			p.code = ExitCode(exitErr.ExitCode())
		default:
			p.code = 1
			p.err = fmt.Errorf("waiting for %s: %w", p.cmd.Path, err)
		}
	})
	return p.code, p.err
}

// Signal implements Process.
func (p *cmdProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return ErrNotStarted
	}
	return p.cmd.Process.Signal(sig)
}

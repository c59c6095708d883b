//go:build !windows

package capture

import (
	"errors"
	"os/exec"
	"syscall"
)

func suspendProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New("process not started")
	}
	return cmd.Process.Signal(syscall.SIGSTOP)
}

func continueProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New("process not started")
	}
	return cmd.Process.Signal(syscall.SIGCONT)
}

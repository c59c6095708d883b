//go:build windows

package capture

import (
	"errors"
	"os/exec"
)

// Windows has no SIGSTOP equivalent for console processes; pause is not
// supported for the ffmpeg source there.
func suspendProcess(cmd *exec.Cmd) error {
	return errors.New("pause not supported on windows")
}

func continueProcess(cmd *exec.Cmd) error {
	return errors.New("resume not supported on windows")
}

//go:build unix

package media

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := killProcessGroupID(p.Pid); err != nil {
		return p.Kill()
	}
	return nil
}

func killProcessGroupID(pgid int) error {
	err := syscall.Kill(-pgid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// processGroupAlive probes the group with signal 0.
func processGroupAlive(pgid int) bool {
	return syscall.Kill(-pgid, 0) == nil
}

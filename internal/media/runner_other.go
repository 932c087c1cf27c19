//go:build !unix

package media

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}

func killProcessGroupID(int) error { return nil }

func processGroupAlive(int) bool { return false }

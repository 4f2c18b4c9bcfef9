// SPDX-License-Identifier: MIT

//go:build !unix

package procgroup

import "os/exec"

func set(cmd *exec.Cmd) {}

// Fallback: only the root process is killed.
func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

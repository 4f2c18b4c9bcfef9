// SPDX-License-Identifier: MIT

// Package procgroup runs helper binaries (yt-dlp, ffmpeg) in their own
// process group so a timeout reaps the whole tree, not just the leader.
package procgroup

import (
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Wait blocks on inherited pipes after the
// process group was killed.
const DefaultWaitDelay = 5 * time.Second

// Set configures the command to start in a new process group.
// Mandatory for Kill to function as a group reaper.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Bind puts cmd in its own process group and makes context cancellation
// kill the whole group. cmd must have been created with exec.CommandContext.
func Bind(cmd *exec.Cmd) {
	set(cmd)
	cmd.Cancel = func() error {
		return kill(cmd)
	}
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
}

// Kill forcibly terminates the process group of cmd. It is a no-op for
// commands that never started or already exited.
func Kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return kill(cmd)
}

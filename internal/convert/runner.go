// SPDX-License-Identifier: MIT

package convert

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/snapdown/snapdown/internal/procgroup"
)

// maxStderr bounds how much encoder diagnostic output is kept per run.
const maxStderr = 64 << 10

// Runner executes one encoder command and reports its diagnostic output.
type Runner interface {
	Run(ctx context.Context, bin string, args []string) (stderr string, err error)
}

// ExecRunner runs the encoder as a subprocess in its own process group, so a
// cancelled context kills the encoder and anything it spawned.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, bin string, args []string) (string, error) {
	// #nosec G204 -- bin is resolved at startup; args come from BuildArgs
	cmd := exec.CommandContext(ctx, bin, args...)
	procgroup.Bind(cmd)

	var stderr tailBuffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// tailBuffer keeps the last maxStderr bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= maxStderr {
		t.buf.Reset()
		t.buf.Write(p[n-maxStderr:])
		return n, nil
	}
	if over := t.buf.Len() + n - maxStderr; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }

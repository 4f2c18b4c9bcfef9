// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// BinaryChecker reports whether an external binary was found.
type BinaryChecker struct {
	name      string
	available func() bool
	missing   Status
}

// NewBinaryChecker reports missing as the status when available returns false.
func NewBinaryChecker(name string, available func() bool, missing Status) *BinaryChecker {
	return &BinaryChecker{name: name, available: available, missing: missing}
}

func (c *BinaryChecker) Name() string { return c.name }

func (c *BinaryChecker) Check(context.Context) CheckResult {
	if c.available() {
		return CheckResult{Status: StatusHealthy, Message: "available"}
	}
	return CheckResult{Status: c.missing, Error: "binary not found"}
}

// DirChecker verifies a directory exists and is writable.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker for a writable directory.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	if err := checkWritableDir(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// LastRunChecker flags a background loop that stopped making progress.
type LastRunChecker struct {
	name       string
	getLastRun func() (time.Time, string)
	maxAge     time.Duration
}

// NewLastRunChecker reports degraded when the last run is older than maxAge
// or failed.
func NewLastRunChecker(name string, getLastRun func() (time.Time, string), maxAge time.Duration) *LastRunChecker {
	return &LastRunChecker{name: name, getLastRun: getLastRun, maxAge: maxAge}
}

func (c *LastRunChecker) Name() string { return c.name }

func (c *LastRunChecker) Check(context.Context) CheckResult {
	lastRun, lastError := c.getLastRun()
	switch {
	case lastRun.IsZero():
		return CheckResult{Status: StatusDegraded, Message: "no run yet"}
	case lastError != "":
		return CheckResult{Status: StatusDegraded, Error: lastError, Message: "last run failed"}
	case c.maxAge > 0 && time.Since(lastRun) > c.maxAge:
		return CheckResult{Status: StatusDegraded, Message: "last run is overdue"}
	default:
		return CheckResult{Status: StatusHealthy, Message: "last run successful"}
	}
}

func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: path, Err: os.ErrInvalid}
	}
	f, err := os.CreateTemp(path, ".write_test")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

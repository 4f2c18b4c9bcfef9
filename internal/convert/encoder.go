// SPDX-License-Identifier: MIT

package convert

import (
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultEncoderLocations are probed when the encoder is not on PATH.
var DefaultEncoderLocations = []string{
	`C:\ffmpeg\bin\ffmpeg.exe`,
	`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
	"/usr/local/bin/ffmpeg",
	"/opt/homebrew/bin/ffmpeg",
}

// LocateEncoder resolves the encoder binary: the configured name (or
// "ffmpeg") on PATH first, then each fallback location, then an ffmpeg
// directory next to the running executable. It returns "" when nothing is
// found.
func LocateEncoder(configured string, fallbacks []string) string {
	name := configured
	if name == "" {
		name = "ffmpeg"
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}

	candidates := append([]string(nil), fallbacks...)
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "ffmpeg")
		candidates = append(candidates, filepath.Join(dir, "ffmpeg"), filepath.Join(dir, "ffmpeg.exe"))
	}
	for _, c := range candidates {
		if isExecutableFile(c) {
			return c
		}
	}
	return ""
}

func isExecutableFile(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	return filepath.Ext(path) == ".exe" || fi.Mode().Perm()&0o111 != 0
}

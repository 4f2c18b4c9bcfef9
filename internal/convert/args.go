// SPDX-License-Identifier: MIT

package convert

import "strings"

// Strategy names an encoder attempt.
type Strategy string

const (
	// StrategyCopy remuxes without re-encoding.
	StrategyCopy Strategy = "copy"
	// StrategyReencode transcodes to H.264/AAC when the copy attempt fails.
	StrategyReencode Strategy = "reencode"
)

// DefaultHeaderUserAgent is sent to the origin alongside the referrer.
const DefaultHeaderUserAgent = "Mozilla/5.0"

// ArgsInput is everything needed to build one encoder command line.
type ArgsInput struct {
	Strategy Strategy
	Input    string
	Output   string

	// Referrer, when set, is sent to the origin together with UserAgent.
	Referrer  string
	UserAgent string
}

// BuildArgs returns the complete, ordered argument list for one attempt.
// Request headers always precede -i so they apply to the input. The output
// container is forced with -f because the staging path has no extension.
func BuildArgs(in ArgsInput) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}

	if h := requestHeaders(in.Referrer, in.UserAgent); h != "" {
		args = append(args, "-headers", h)
	}
	args = append(args, "-i", in.Input)

	switch in.Strategy {
	case StrategyReencode:
		args = append(args, "-c:v", "libx264", "-c:a", "aac", "-preset", "fast")
	default:
		args = append(args, "-c", "copy", "-bsf:a", "aac_adtstoasc")
	}

	return append(args, "-movflags", "+faststart", "-f", "mp4", "-y", in.Output)
}

func requestHeaders(referrer, userAgent string) string {
	referrer = stripCRLF(referrer)
	if referrer == "" {
		return ""
	}
	userAgent = stripCRLF(userAgent)
	if userAgent == "" {
		userAgent = DefaultHeaderUserAgent
	}
	return "Referer: " + referrer + "\r\nUser-Agent: " + userAgent + "\r\n"
}

func stripCRLF(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(s))
}

// SPDX-License-Identifier: MIT

// Package snapurl decides whether a string is a shareable Snapchat content
// URL and derives what can be read from its shape alone: the owner's
// username and the content kind. No network calls are made here.
package snapurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/snapdown/snapdown/internal/media"
)

// RuleSet is the uncompiled, configurable form of the classifier. Patterns
// are matched case-insensitively against "host/path" with the host
// lowercased, so they should be anchored with ^.
type RuleSet struct {
	// Patterns accept a URL when any of them matches.
	Patterns []string `yaml:"patterns"`
	// OwnerPatterns are tried in order; the first capture group of the first
	// match is the owner hint.
	OwnerPatterns []string `yaml:"ownerPatterns"`
	// Reserved path segments that are never usernames.
	Reserved []string `yaml:"reserved"`
}

const snapHost = `^(?:[a-z0-9-]+\.)*snapchat\.com`

// DefaultRuleSet returns the built-in Snapchat rules.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Patterns: []string{
			snapHost + `/spotlight/.+`,
			snapHost + `/@[\w.-]+/spotlight/.+`,
			snapHost + `/@[\w.-]+(?:/.*)?$`,
			snapHost + `/add/.+`,
			snapHost + `/t/.+`,
			snapHost + `/p/.+`,
			snapHost + `/discover/.+`,
			snapHost + `/story/.+`,
			snapHost + `/unlock/.+`,
			`^story\.snapchat\.com/.+`,
			`^web\.snapchat\.com/.+`,
			`^t\.snapchat\.com/.+`,
			`^(?:www\.)?snap\.com/.+`,
		},
		OwnerPatterns: []string{
			`^story\.snapchat\.com/s/([A-Za-z0-9_.-]+)`,
			snapHost + `/@([A-Za-z0-9_.-]+)`,
			snapHost + `/add/([A-Za-z0-9_.-]+)`,
			snapHost + `/story/([A-Za-z0-9_.-]+)`,
			`^(?:t|web)\.snapchat\.com/([A-Za-z0-9_.-]+)`,
		},
		Reserved: []string{"s", "p", "t", "spotlight", "discover", "story", "add", "unlock"},
	}
}

// Rules is a compiled RuleSet. It is immutable and safe for concurrent use.
type Rules struct {
	patterns []*regexp.Regexp
	owners   []*regexp.Regexp
	reserved map[string]struct{}
}

// Compile validates and compiles a RuleSet.
func Compile(rs RuleSet) (*Rules, error) {
	if len(rs.Patterns) == 0 {
		return nil, fmt.Errorf("snapurl: at least one pattern is required")
	}
	r := &Rules{reserved: make(map[string]struct{}, len(rs.Reserved))}
	for _, p := range rs.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("snapurl: pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	for _, p := range rs.OwnerPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("snapurl: owner pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("snapurl: owner pattern %q has no capture group", p)
		}
		r.owners = append(r.owners, re)
	}
	for _, s := range rs.Reserved {
		r.reserved[strings.ToLower(s)] = struct{}{}
	}
	return r, nil
}

// MustDefault compiles DefaultRuleSet and panics on error.
func MustDefault() *Rules {
	r, err := Compile(DefaultRuleSet())
	if err != nil {
		panic(err)
	}
	return r
}

// IsSupported reports whether raw looks like a Snapchat content URL.
func (r *Rules) IsSupported(raw string) bool {
	key, ok := matchKey(raw)
	if !ok {
		return false
	}
	for _, re := range r.patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// OwnerHint derives a username from recognizable URL path segments.
func (r *Rules) OwnerHint(raw string) (string, bool) {
	key, ok := matchKey(raw)
	if !ok {
		return "", false
	}
	for _, re := range r.owners {
		m := re.FindStringSubmatch(key)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		if _, reserved := r.reserved[strings.ToLower(m[1])]; reserved {
			continue
		}
		return m[1], true
	}
	return "", false
}

// Kind infers the content kind from the URL shape.
func (r *Rules) Kind(raw string) media.ContentKind {
	key, ok := matchKey(raw)
	if !ok {
		return media.ContentOther
	}
	key = strings.ToLower(key)
	host, path, _ := strings.Cut(key, "/")
	path = "/" + path
	switch {
	case strings.Contains(path, "/spotlight/"):
		return media.ContentSpotlight
	case strings.HasPrefix(host, "story."), strings.HasPrefix(path, "/story/"), strings.HasPrefix(path, "/s/"):
		return media.ContentStory
	default:
		return media.ContentOther
	}
}

// matchKey normalizes raw into "host/path". Scheme-less input is accepted
// and treated as https; any scheme other than http(s) is rejected.
func matchKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host + u.Path, true
}

// Package blocklist rejects candidate URLs whose host matches a configured pattern.
package blocklist

import (
	"net/url"
	"slices"
	"strings"
)

// Blocklist stores exact hosts and suffix wildcards. A nil *Blocklist blocks nothing.
type Blocklist struct {
	exact    map[string]struct{}
	suffixes []string
}

// New parses patterns of the form "example.org" (that host only) and
// "*.example.org" or ".example.org" (the domain and all its subdomains).
// It returns nil when no usable pattern is given.
func New(patterns []string) *Blocklist {
	b := &Blocklist{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
		case strings.HasPrefix(value, "*."):
			b.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			b.addSuffix(strings.TrimPrefix(value, "."))
		default:
			b.exact[value] = struct{}{}
		}
	}
	if len(b.exact) == 0 && len(b.suffixes) == 0 {
		return nil
	}
	return b
}

func (b *Blocklist) addSuffix(suffix string) {
	if suffix == "" || slices.Contains(b.suffixes, suffix) {
		return
	}
	b.suffixes = append(b.suffixes, suffix)
}

// BlocksHost reports whether host matches a pattern.
func (b *Blocklist) BlocksHost(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if _, ok := b.exact[host]; ok {
		return true
	}
	for _, suffix := range b.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// Allows reports whether rawURL may be fetched. Unparseable URLs are allowed
// and left for the fetch to reject.
func (b *Blocklist) Allows(rawURL string) bool {
	if b == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return !b.BlocksHost(u.Hostname())
}

// Package marketref classifies free-form user input (raw id, slug, or
// marketplace URL) into a canonical market reference.
package marketref

import (
	"net/url"
	"strings"
)

// DefaultHost is the marketplace domain accepted for URL input.
const DefaultHost = "polymarket.com"

const (
	eventPathPrefix  = "/event/"
	marketPathPrefix = "/market/"
)

// Kind discriminates the Reference variants.
type Kind int

const (
	// KindInvalid marks input that cannot denote a market.
	KindInvalid Kind = iota
	// KindNumericID is a canonical server-addressable numeric id.
	KindNumericID
	// KindSlug needs a directory lookup to become a numeric id.
	KindSlug
)

// Reference is the result of normalizing one user submission. It is
// produced once per submission and never persisted.
type Reference struct {
	Kind    Kind
	Value   string
	IsEvent bool   // only meaningful for KindSlug
	Reason  string // only set for KindInvalid
}

// Normalize classifies input against the default marketplace host. It is
// pure and total: every input yields exactly one variant, never an error.
func Normalize(input string) Reference {
	return NormalizeForHost(input, DefaultHost)
}

// NormalizeForHost is Normalize with an explicit marketplace host.
func NormalizeForHost(input, host string) Reference {
	trimmed := strings.TrimSpace(input)

	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return classifyBare(trimmed)
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		// Malformed URL text is treated as opaque input, so a bare slug
		// that merely resembles a broken URL still resolves.
		return classifyBare(trimmed)
	}

	if !hostMatches(u.Hostname(), host) {
		return Reference{Kind: KindInvalid, Reason: "host mismatch"}
	}

	path := u.Path

	if strings.HasPrefix(path, eventPathPrefix) {
		slug := firstSegment(path[len(eventPathPrefix):])
		if slug == "" {
			return Reference{Kind: KindInvalid, Reason: "empty event slug"}
		}
		return Reference{Kind: KindSlug, Value: slug, IsEvent: true}
	}

	if strings.HasPrefix(path, marketPathPrefix) {
		slug := firstSegment(path[len(marketPathPrefix):])
		if slug == "" {
			return Reference{Kind: KindInvalid, Reason: "empty market slug"}
		}
		return classifyMarketSlug(slug)
	}

	// Unrecognized path: fall back to the last non-empty segment.
	if seg := lastSegment(path); seg != "" {
		return classifyMarketSlug(seg)
	}
	return Reference{Kind: KindInvalid, Reason: "no market reference in URL path"}
}

// classifyBare handles non-URL input: an all-digit string is already a
// canonical id, anything else is a market slug.
func classifyBare(s string) Reference {
	if s == "" {
		return Reference{Kind: KindInvalid, Reason: "empty input"}
	}
	if isDigits(s) {
		return Reference{Kind: KindNumericID, Value: s}
	}
	return Reference{Kind: KindSlug, Value: s}
}

// classifyMarketSlug recognizes ids embedded in market slugs. Marketplace
// market URLs end the slug with "-<id>", so that suffix resolves locally
// without a directory round trip.
func classifyMarketSlug(slug string) Reference {
	if isDigits(slug) {
		return Reference{Kind: KindNumericID, Value: slug}
	}
	if i := strings.LastIndexByte(slug, '-'); i >= 0 && i+1 < len(slug) && isDigits(slug[i+1:]) {
		return Reference{Kind: KindNumericID, Value: slug[i+1:]}
	}
	return Reference{Kind: KindSlug, Value: slug}
}

func hostMatches(got, want string) bool {
	got = strings.ToLower(got)
	want = strings.ToLower(want)
	return got == want || strings.HasSuffix(got, "."+want)
}

func firstSegment(s string) string {
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}

func lastSegment(path string) string {
	segs := strings.Split(path, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] != "" {
			return segs[i]
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

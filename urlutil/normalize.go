package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Canonical lowercases the scheme and host of rawURL and otherwise leaves it
// intact. Fragments are kept: two links that differ only by fragment are
// distinct navigation targets.
//
// Returns an error if the input is empty or is not an absolute URL.
func Canonical(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("cannot canonicalize empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("canonicalize URL %q: %w", rawURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("URL must have both scheme and host")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	return parsed.String(), nil
}

// IsFragmentNavigation reports whether navigating from current to target
// only changes the fragment of the same document. Browsers treat such a
// navigation as a same-document scroll and emit no network response.
func IsFragmentNavigation(current, target string) bool {
	cur, err := url.Parse(current)
	if err != nil {
		return false
	}
	tgt, err := url.Parse(target)
	if err != nil {
		return false
	}

	if tgt.Fragment == "" && !strings.HasSuffix(target, "#") {
		return false
	}

	return strings.EqualFold(cur.Scheme, tgt.Scheme) &&
		strings.EqualFold(cur.Host, tgt.Host) &&
		samePath(cur.Path, tgt.Path) &&
		cur.RawQuery == tgt.RawQuery
}

// samePath treats an empty path and "/" as the same document.
func samePath(a, b string) bool {
	if a == "" {
		a = "/"
	}
	if b == "" {
		b = "/"
	}
	return a == b
}

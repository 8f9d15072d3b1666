// Package urlutil canonicalizes and filters the URLs flowing through a
// crawl: every link the extractor emits is normalized here before it is
// enqueued or checked against the visited set, so queue membership and
// visited-log lookups compare like with like.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Normalize returns the canonical form of rawURL: scheme and host are
// lowercased, the fragment is dropped, and a trailing slash is trimmed
// from any path but the bare root "/". Query parameters are preserved, so
// /page?a=1 and /page?a=2 stay distinct crawl targets.
//
// An empty string, an unparseable URL, or one lacking scheme or host is an
// error; relative references must be resolved against a base first.
func Normalize(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("cannot normalize empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("URL must have both scheme and host")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String(), nil
}

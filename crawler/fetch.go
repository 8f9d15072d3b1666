package crawler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// defaultFetchTimeout is the per-request socket/read timeout used when the
// job config doesn't override it.
const defaultFetchTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 10 << 20

// FetchResult is the outcome of fetching and decoding one page.
type FetchResult struct {
	StatusCode int
	Body       string
	RTT        time.Duration
}

// Fetch retrieves rawURL with the given timeout (10 seconds if zero) and
// User-Agent. It tries strict TLS verification first; on a certificate
// verification failure it retries once with verification disabled. Non-200
// statuses and undecodable bodies are returned as errors for the caller to
// skip and log, never panics or process-fatal conditions.
func Fetch(ctx context.Context, rawURL, userAgent string, timeout time.Duration) (FetchResult, error) {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, rtt, err := doFetch(reqCtx, rawURL, userAgent, false)
	if err != nil && isTLSVerificationError(err) {
		resp, rtt, err = doFetch(reqCtx, rawURL, userAgent, true)
	}
	if err != nil {
		return FetchResult{RTT: rtt}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{StatusCode: resp.StatusCode, RTT: rtt},
			fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return FetchResult{StatusCode: resp.StatusCode, RTT: rtt}, fmt.Errorf("read body: %w", err)
	}

	text, ok := decodeBody(raw)
	if !ok {
		return FetchResult{StatusCode: resp.StatusCode, RTT: rtt},
			fmt.Errorf("decode %s: neither utf-8 nor latin-1", rawURL)
	}

	return FetchResult{StatusCode: resp.StatusCode, Body: text, RTT: rtt}, nil
}

func doFetch(ctx context.Context, rawURL, userAgent string, insecureSkipVerify bool) (*http.Response, time.Duration, error) {
	var seen []string
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			current := req.URL.String()
			for _, s := range seen {
				if s == current {
					return errors.New("redirect loop detected")
				}
			}
			seen = append(seen, current)
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return nil, rtt, err
	}
	return resp, rtt, nil
}

// decodeBody tries UTF-8, then Latin-1 (ISO-8859-1). Latin-1 accepts any
// byte sequence, so a false return only happens if the charmap decoder
// itself errors.
func decodeBody(raw []byte) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), true
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

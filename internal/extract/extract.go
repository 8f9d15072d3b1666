// Package extract implements the HTML Extractor: it turns a fetched page's
// bytes into a text stream (for word indexing) and a list of outbound links
// resolved against the page's URL.
package extract

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/lukemcguire/webdex/urlutil"
	"golang.org/x/net/html"
)

// wordPattern matches the ASCII-letter tokens the crawler counts and the
// search engine matches against.
var wordPattern = regexp.MustCompile(`[A-Za-z]{2,}`)

// suppressed holds the tags whose character data must not be captured into
// the text stream.
var suppressed = map[string]bool{"script": true, "style": true}

// Result is the output of extracting a single page.
type Result struct {
	// Text is the page's visible text, with document-order tokens joined by
	// single spaces. <script>/<style> content is excluded.
	Text string
	// URLs are outbound links in document order, resolved to absolute
	// http(s) URLs and normalized. Duplicates are not removed here.
	URLs []string
}

// Page parses HTML bytes and extracts text plus outbound links, resolving
// relative hrefs against base. It never returns an error: malformed markup
// degrades to a best-effort partial result, matching the contract that a
// bad page must not abort a crawl.
func Page(body io.Reader, base *url.URL) Result {
	tokenizer := html.NewTokenizer(body)

	var textParts []string
	var urls []string
	suppressDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return Result{
				Text: strings.Join(textParts, " "),
				URLs: urls,
			}

		case html.TextToken:
			if suppressDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					textParts = append(textParts, text)
				}
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			name := strings.ToLower(token.Data)

			if suppressed[name] {
				if token.Type != html.SelfClosingTagToken {
					suppressDepth++
				}
				continue
			}

			if name == "a" {
				if href, ok := hrefAttr(token); ok {
					if resolved, ok := resolveLink(base, href); ok {
						urls = append(urls, resolved)
					}
				}
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			if suppressed[strings.ToLower(token.Data)] && suppressDepth > 0 {
				suppressDepth--
			}
		}
	}
}

// Words tokenizes text into the lowercased [A-Za-z]{2,} word stream the
// crawl job counts frequencies over.
func Words(text string) []string {
	matches := wordPattern.FindAllString(text, -1)
	words := make([]string, len(matches))
	for i, m := range matches {
		words[i] = strings.ToLower(m)
	}
	return words
}

func hrefAttr(token html.Token) (string, bool) {
	for _, attr := range token.Attr {
		if attr.Key == "href" {
			if attr.Val == "" || strings.HasPrefix(attr.Val, "#") {
				return "", false
			}
			return attr.Val, true
		}
	}
	return "", false
}

func resolveLink(base *url.URL, href string) (string, bool) {
	hrefURL, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(hrefURL).String()
	if !urlutil.IsHTTPScheme(resolved) {
		return "", false
	}

	normalized, err := urlutil.Normalize(resolved)
	if err != nil {
		return "", false
	}
	return normalized, true
}

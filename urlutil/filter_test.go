package urlutil_test

import (
	"testing"

	"github.com/lukemcguire/webdex/urlutil"
)

func TestIsHTTPScheme(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"http", "http://example.com", true},
		{"https", "https://example.com/path", true},
		{"mailto", "mailto:a@example.com", false},
		{"javascript", "javascript:void(0)", false},
		{"ftp", "ftp://example.com", false},
		{"tel", "tel:+15555550100", false},
		{"empty", "", false},
		{"fragment only", "#section", false},
		{"unparseable", "http://[::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urlutil.IsHTTPScheme(tt.url); got != tt.want {
				t.Errorf("IsHTTPScheme(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestResolveReference(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		ref     string
		want    string
		wantErr bool
	}{
		{"relative path", "http://example.com/a/", "b", "http://example.com/a/b", false},
		{"parent navigation", "http://example.com/a/b/", "../c", "http://example.com/a/c", false},
		{"absolute ref", "http://example.com/a/", "https://other.com/x", "https://other.com/x", false},
		{"bad base", "://bad", "x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := urlutil.ResolveReference(tt.base, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveReference() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ResolveReference() = %q, want %q", got, tt.want)
			}
		})
	}
}

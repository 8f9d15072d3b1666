package urlutil_test

import (
	"testing"

	"github.com/lukemcguire/webdex/urlutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercases scheme and host", "HTTP://Example.COM/Path", "http://example.com/Path", false},
		{"strips fragment", "http://example.com/path#section", "http://example.com/path", false},
		{"strips trailing slash", "http://example.com/path/", "http://example.com/path", false},
		{"keeps root slash", "http://example.com/", "http://example.com/", false},
		{"keeps query", "http://example.com/path?a=1", "http://example.com/path?a=1", false},
		{"empty is invalid", "", "", true},
		{"missing host is invalid", "/relative/path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := urlutil.Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

package urlnorm

import (
	"testing"
)

func newTestNormalizer(t *testing.T, opts Options, excluded ...string) *Normalizer {
	t.Helper()
	n, err := New("https://app.example.com/", opts, excluded)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return n
}

func TestNormalize(t *testing.T) {
	base := "https://app.example.com/dashboard"

	tests := []struct {
		name string
		opts Options
		raw  string
		want string
	}{
		{
			name: "relative path resolved against page",
			raw:  "profile",
			want: "https://app.example.com/profile",
		},
		{
			name: "absolute path",
			raw:  "/orders/42",
			want: "https://app.example.com/orders/42",
		},
		{
			name: "trailing slash stripped",
			raw:  "/orders/",
			want: "https://app.example.com/orders",
		},
		{
			name: "root slash kept",
			raw:  "https://app.example.com/",
			want: "https://app.example.com/",
		},
		{
			name: "fragment dropped by default",
			raw:  "/orders#section",
			want: "https://app.example.com/orders",
		},
		{
			name: "query dropped by default",
			raw:  "/orders?id=1",
			want: "https://app.example.com/orders",
		},
		{
			name: "query kept when configured",
			opts: Options{KeepQuery: true},
			raw:  "/orders?id=1",
			want: "https://app.example.com/orders?id=1",
		},
		{
			name: "fragment kept when configured",
			opts: Options{KeepFragment: true},
			raw:  "/orders#x",
			want: "https://app.example.com/orders#x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNormalizer(t, tt.opts)
			got := n.Normalize(base, tt.raw)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer(t, Options{KeepQuery: true})
	base := "https://app.example.com/dashboard"

	inputs := []string{
		"/orders/42/",
		"profile?tab=pets",
		"https://app.example.com/",
		"/a/b/c#frag",
	}
	for _, raw := range inputs {
		once := n.Normalize(base, raw)
		twice := n.Normalize(base, once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", raw, once, twice)
		}
	}
}

func TestNormalizeTrailingSlashEquivalence(t *testing.T) {
	n := newTestNormalizer(t, Options{})
	base := "https://app.example.com/"

	a := n.Normalize(base, "/grooming/")
	b := n.Normalize(base, "/grooming")
	if a != b {
		t.Errorf("trailing-slash variants differ: %q vs %q", a, b)
	}

	// Fragment-only difference collapses when hash retention is off.
	c := n.Normalize(base, "/grooming#book")
	if a != c {
		t.Errorf("fragment variant differs: %q vs %q", a, c)
	}
}

func TestIsValid(t *testing.T) {
	base := "https://app.example.com/dashboard"

	tests := []struct {
		name     string
		raw      string
		excluded []string
		want     bool
	}{
		{"same origin path", "/orders", nil, true},
		{"relative", "orders", nil, true},
		{"empty", "", nil, false},
		{"mailto", "mailto:x@example.com", nil, false},
		{"javascript", "javascript:void(0)", nil, false},
		{"cross host", "https://other.example.com/page", nil, false},
		{"cross scheme", "http://app.example.com/page", nil, false},
		{"excluded substring", "/account/logout", []string{"logout"}, false},
		{"excluded case-insensitive", "/account/LogOut", []string{"logout"}, false},
		{"not excluded", "/account/settings", []string{"logout"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNormalizer(t, Options{}, tt.excluded...)
			if got := n.IsValid(base, tt.raw); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://app.example.com/path?x=1", "https://app.example.com"},
		{"https://app.example.com", "https://app.example.com"},
		{"app.example.com/", "app.example.com"},
	}
	for _, tt := range tests {
		if got := Origin(tt.in); got != tt.want {
			t.Errorf("Origin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

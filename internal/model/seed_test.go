package model

import (
	"errors"
	"testing"
)

func TestNewSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantURL    string
		wantDomain string
		wantErr    error
	}{
		{
			name:       "full https URL",
			raw:        "https://www.virgio.com/",
			wantURL:    "https://www.virgio.com/",
			wantDomain: "www.virgio.com",
			wantErr:    nil,
		},
		{
			name:       "bare host gets https scheme and root path",
			raw:        "nykaafashion.com",
			wantURL:    "https://nykaafashion.com/",
			wantDomain: "nykaafashion.com",
			wantErr:    nil,
		},
		{
			name:       "uppercase host is lowercased",
			raw:        "https://WWW.TataCliq.COM/",
			wantURL:    "https://www.tatacliq.com/",
			wantDomain: "www.tatacliq.com",
			wantErr:    nil,
		},
		{
			name:       "fragment is stripped",
			raw:        "https://www.westside.com/collections/dresses#grid",
			wantURL:    "https://www.westside.com/collections/dresses",
			wantDomain: "www.westside.com",
			wantErr:    nil,
		},
		{
			name:       "default https port is stripped",
			raw:        "https://www.virgio.com:443/shop",
			wantURL:    "https://www.virgio.com/shop",
			wantDomain: "www.virgio.com",
			wantErr:    nil,
		},
		{
			name:       "surrounding whitespace is trimmed",
			raw:        "  https://www.virgio.com/  ",
			wantURL:    "https://www.virgio.com/",
			wantDomain: "www.virgio.com",
			wantErr:    nil,
		},
		{
			name:    "empty seed",
			raw:     "",
			wantErr: ErrEmptySeedURL,
		},
		{
			name:    "whitespace only",
			raw:     "   ",
			wantErr: ErrEmptySeedURL,
		},
		{
			name:    "scheme without host",
			raw:     "https://",
			wantErr: ErrInvalidSeedURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seed, err := NewSeed(tt.raw)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
				} else if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got := seed.URL(); got != tt.wantURL {
				t.Errorf("URL: expected %s, got %s", tt.wantURL, got)
			}
			if got := seed.Domain(); got != tt.wantDomain {
				t.Errorf("Domain: expected %s, got %s", tt.wantDomain, got)
			}
		})
	}
}

func TestSeed_Task(t *testing.T) {
	t.Parallel()

	seed := MustNewSeed("https://www.virgio.com/")
	task := seed.Task()

	if task.URL != "https://www.virgio.com/" {
		t.Errorf("expected seed URL, got %s", task.URL)
	}
	if task.Domain != "www.virgio.com" {
		t.Errorf("expected seed domain, got %s", task.Domain)
	}
	if task.Depth != 0 {
		t.Errorf("expected depth 0, got %d", task.Depth)
	}
	if task.Category != CategoryPriority {
		t.Errorf("expected priority category, got %v", task.Category)
	}
}

func TestSeed_Methods(t *testing.T) {
	t.Parallel()

	t.Run("IsZero on zero value", func(t *testing.T) {
		t.Parallel()
		var zero Seed
		if !zero.IsZero() {
			t.Error("expected zero value to report IsZero")
		}
		if MustNewSeed("https://example.com").IsZero() {
			t.Error("expected constructed seed to not be zero")
		}
	})

	t.Run("Equals compares normalized URLs", func(t *testing.T) {
		t.Parallel()
		a := MustNewSeed("https://Example.com")
		b := MustNewSeed("https://example.com/")
		if !a.Equals(b) {
			t.Errorf("expected %s to equal %s", a.URL(), b.URL())
		}
	})
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "query string preserved",
			raw:  "https://www.tatacliq.com/womens-clothing?page=2",
			want: "https://www.tatacliq.com/womens-clothing?page=2",
		},
		{
			name: "http default port stripped",
			raw:  "http://example.com:80/a",
			want: "http://example.com/a",
		},
		{
			name: "non-default port kept",
			raw:  "http://example.com:8080/a",
			want: "http://example.com:8080/a",
		},
		{
			name: "empty path becomes slash",
			raw:  "https://example.com",
			want: "https://example.com/",
		},
		{
			name:    "no host",
			raw:     "/relative/path",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDomainOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain host", url: "https://nykaafashion.com/product/red-dress", want: "nykaafashion.com"},
		{name: "www host", url: "https://www.westside.com/", want: "www.westside.com"},
		{name: "host with port", url: "http://localhost:8080/x", want: "localhost"},
		{name: "unparseable", url: "://", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DomainOf(tt.url); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSameDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{
			name: "same host",
			a:    "https://www.virgio.com/shop",
			b:    "https://www.virgio.com/collections/summer",
			want: true,
		},
		{
			name: "different subdomain",
			a:    "https://www.virgio.com/",
			b:    "https://blog.virgio.com/",
			want: false,
		},
		{
			name: "different site",
			a:    "https://www.virgio.com/",
			b:    "https://www.westside.com/",
			want: false,
		},
		{
			name: "unparseable left side",
			a:    "://",
			b:    "https://www.virgio.com/",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SameDomain(tt.a, tt.b); got != tt.want {
				t.Errorf("SameDomain(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

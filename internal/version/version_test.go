package version

import (
	"strings"
	"testing"
)

func TestShortCommit(t *testing.T) {
	tests := []struct {
		name   string
		hash   string
		expect string
	}{
		{"full SHA", "abcdef1234567890abcdef1234567890abcdef12", "abcdef123456"},
		{"exactly 12", "abcdef123456", "abcdef123456"},
		{"short hash", "abcdef", "abcdef"},
		{"empty", "", ""},
		{"13 chars", "abcdef1234567", "abcdef123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShortCommit(tt.hash)
			if got != tt.expect {
				t.Errorf("ShortCommit(%q) = %q, want %q", tt.hash, got, tt.expect)
			}
		})
	}
}

func TestSetCommit(t *testing.T) {
	original := Commit
	defer func() { Commit = original }()

	SetCommit("abc123def456")
	if Commit != "abc123def456" {
		t.Errorf("SetCommit did not set Commit; got %q", Commit)
	}
	if got := ResolveCommit(); got != "abc123def456" {
		t.Errorf("ResolveCommit() = %q, want the explicit commit", got)
	}
}

func TestString(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() { Version, Commit = origVersion, origCommit }()

	Version = "1.2.0"
	Commit = "abcdef1234567890"
	if got := String(); got != "1.2.0 (abcdef123456)" {
		t.Errorf("String() = %q", got)
	}

	// Without an explicit commit the build info may still supply one.
	Commit = ""
	if got := String(); !strings.HasPrefix(got, "1.2.0") {
		t.Errorf("String() = %q, want prefix 1.2.0", got)
	}
}

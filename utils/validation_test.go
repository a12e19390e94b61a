package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces_to_underscore", in: "Default Responses", want: "default_responses"},
		{name: "strips_unsafe", in: "../forge/talk!", want: "forgetalk"},
		{name: "already_clean", in: "blacksmith-01", want: "blacksmith-01"},
		{name: "leading_punctuation", in: "__hidden", want: "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeIdentifier(tt.in)
			if got != tt.want {
				t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got != "" && !ValidIdentifier(got) {
				t.Errorf("sanitized identifier %q is not valid", got)
			}
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"greetings", true},
		{"Greetings", false},
		{"", false},
		{"a b", false},
		{"_x", false},
	}
	for _, tt := range tests {
		if got := ValidIdentifier(tt.in); got != tt.want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVerifyDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "table.yaml")
	if err := os.WriteFile(file, []byte("id: x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !VerifyDirExists(dir) {
		t.Error("temp dir should exist")
	}
	if VerifyDirExists(file) {
		t.Error("a regular file is not a directory")
	}
	if VerifyDirExists(filepath.Join(dir, "missing")) {
		t.Error("missing path reported as existing")
	}
}

package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("failed to create git dir: %v", err)
	}
	child := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("failed to create nested dirs: %v", err)
	}
	found, err := FindRoot(child)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != root {
		t.Fatalf("expected root %s, got %s", root, found)
	}
}

func TestContains(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "space")
	cases := []struct {
		target string
		want   bool
	}{
		{root, true},
		{filepath.Join(root, "sub", "file.txt"), true},
		{filepath.Join(root, "..", "other"), false},
		{filepath.Join(root+"-sibling", "x"), false},
		{string(filepath.Separator), false},
	}
	for _, tc := range cases {
		if got := Contains(root, tc.target); got != tc.want {
			t.Fatalf("Contains(%q, %q) = %v, want %v", root, tc.target, got, tc.want)
		}
	}
}

func TestIsDenylisted(t *testing.T) {
	for _, path := range []string{".env", "config/.env.local", "certs/server.pem", "/home/u/.ssh/id_rsa", "/home/u/.aws/credentials"} {
		if !IsDenylisted(path) {
			t.Fatalf("expected %s to be denylisted", path)
		}
	}
	for _, path := range []string{"main.go", ".environment.md", "README.md"} {
		if IsDenylisted(path) {
			t.Fatalf("expected %s to be allowed", path)
		}
	}
}

//go:build !windows

package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestCLIJSONOutput(t *testing.T) {
	fixture := t.TempDir()
	if err := os.WriteFile(filepath.Join(fixture, "sample.txt"), []byte("AGTOOLS test\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cmd := exec.Command("go", "run", "./cmd/ag-tools", "--json", "exec", "--working-dir", fixture, "--", "cat sample.txt")
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	wd, _ := os.Getwd()
	cmd.Dir = filepath.Dir(filepath.Dir(wd))

	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(out, &payload); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if payload["tool_name"] != "exec" {
		t.Fatalf("expected tool_name exec, got %v", payload["tool_name"])
	}
	if payload["output"] != "AGTOOLS test\n" {
		t.Fatalf("unexpected output %q", payload["output"])
	}
}

//go:build windows

package tools

import (
	"context"
	"errors"
	"os"
	"os/exec"
)

const defaultShell = "cmd"

func shellCommand(ctx context.Context, shell, command string) *exec.Cmd {
	if shell == "" {
		shell = defaultShell
	}
	cmd := exec.CommandContext(ctx, shell, "/C", command)
	cmd.WaitDelay = waitDelay
	return cmd
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"ag-tools/internal/util"

	"go.uber.org/zap"
)

const (
	DefaultExecTimeout    = 60
	MinExecTimeout        = 1
	MaxExecTimeout        = 1800
	DefaultMaxOutputChars = 10000

	// waitDelay bounds how long Wait keeps reading pipes held open by
	// descendants after the shell itself is gone.
	waitDelay = 2 * time.Second
)

// ExecOptions configures an ExecTool.
type ExecOptions struct {
	Timeout             int
	EnvStrip            []string
	MaxOutputChars      int
	WorkingDir          string
	DenyPatterns        []string
	AllowPatterns       []string
	RestrictToWorkspace bool
	Shell               string
	Logger              *zap.Logger
}

// ExecTool runs shell commands with a deadline, a filtered environment and a
// bounded output size.
type ExecTool struct {
	timeout        int
	envStrip       map[string]struct{}
	maxOutputChars int
	workingDir     string
	shell          string
	guard          *commandGuard
	schema         Schema
	logger         *zap.Logger
}

// NewExecTool constructs an exec tool. Zero option values take the defaults.
func NewExecTool(opts ExecOptions) *ExecTool {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultExecTimeout
	}
	timeout = clampInt(timeout, MinExecTimeout, MaxExecTimeout)
	maxOutput := opts.MaxOutputChars
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputChars
	}

	return &ExecTool{
		timeout:        timeout,
		envStrip:       util.KeySet(opts.EnvStrip),
		maxOutputChars: maxOutput,
		workingDir:     opts.WorkingDir,
		shell:          opts.Shell,
		guard:          newCommandGuard(opts.DenyPatterns, opts.AllowPatterns, opts.RestrictToWorkspace, logger),
		schema:         execSchema(),
		logger:         logger,
	}
}

func execSchema() Schema {
	return Schema{
		Properties: map[string]Property{
			"command": {Type: "string", Description: "The shell command to execute"},
			"timeout": {
				Type:        "integer",
				Description: "Timeout in seconds for this call; overrides the configured default",
				Minimum:     Bound(MinExecTimeout),
				Maximum:     Bound(MaxExecTimeout),
			},
			"working_dir": {Type: "string", Description: "Optional working directory for the command"},
		},
		Required: []string{"command"},
	}
}

func (e *ExecTool) Name() string { return "exec" }

func (e *ExecTool) Description() string {
	return "Execute a shell command and return its combined output. Use with caution."
}

func (e *ExecTool) Parameters() Schema { return e.schema }

func (e *ExecTool) ValidateParams(args map[string]any) []string { return e.schema.Validate(args) }

// Timeout returns the default per-call deadline in seconds.
func (e *ExecTool) Timeout() int { return e.timeout }

// MaxOutputChars returns the truncation ceiling.
func (e *ExecTool) MaxOutputChars() int { return e.maxOutputChars }

type execOutcome struct {
	Output    string
	ExitCode  int
	Elapsed   time.Duration
	TimedOut  bool
	Cancelled bool
}

func (e *ExecTool) Execute(ctx context.Context, args map[string]any) (res Result) {
	start := time.Now()
	defer recoverResult(e.Name(), start, &res)

	command, _ := stringArg(args, "command")
	if strings.TrimSpace(command) == "" {
		return newResult(e.Name(), start, "Error: command is required", false, true)
	}
	timeout := e.timeout
	if v, ok := intArg(args, "timeout"); ok {
		timeout = clampInt(v, MinExecTimeout, MaxExecTimeout)
	}
	cwd := e.workingDir
	if v, ok := stringArg(args, "working_dir"); ok && strings.TrimSpace(v) != "" {
		cwd = v
	}
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return newResult(e.Name(), start, fmt.Sprintf("Error executing command: %v", err), false, true)
		}
		cwd = wd
	}

	logged := util.RedactSecrets(command)
	if reason := e.guard.check(command, cwd); reason != "" {
		e.logger.Warn("command blocked", zap.String("command", logged), zap.String("reason", reason))
		return newResult(e.Name(), start, "Error: Command blocked by safety guard ("+reason+")", false, true)
	}

	outcome, err := e.run(ctx, command, cwd, timeout)
	if err != nil {
		e.logger.Error("command failed to start", zap.String("command", logged), zap.Error(err))
		return newResult(e.Name(), start, fmt.Sprintf("Error executing command: %v", err), false, true)
	}
	e.logger.Debug("command finished",
		zap.String("command", logged),
		zap.Int("exit_code", outcome.ExitCode),
		zap.Bool("timed_out", outcome.TimedOut),
		zap.Duration("elapsed", outcome.Elapsed),
	)

	output, truncated := outcome.render(command, timeout, e.maxOutputChars)
	return newResult(e.Name(), start, output, truncated, outcome.failed())
}

// run spawns the command and waits for it. The returned error is set only
// when the shell could not be started at all.
func (e *ExecTool) run(ctx context.Context, command, cwd string, timeout int) (execOutcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := shellCommand(runCtx, e.shell, command)
	cmd.Dir = cwd
	cmd.Env = util.StripEnv(os.Environ(), e.envStrip)

	// One writer for both streams keeps them in the order they were produced.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return execOutcome{}, err
	}
	waitErr := cmd.Wait()
	// Background descendants may outlive the shell; take them down with it.
	if err := killProcessGroup(cmd); err != nil {
		e.logger.Debug("process group cleanup failed", zap.Error(err))
	}

	outcome := execOutcome{Output: output.String(), Elapsed: time.Since(start)}
	if waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay) {
		return outcome, nil
	}
	if ctx.Err() != nil {
		outcome.Cancelled = true
	} else if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		outcome.TimedOut = true
		e.logger.Warn("command timed out", zap.Int("timeout_seconds", timeout))
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		return outcome, nil
	}
	if outcome.TimedOut || outcome.Cancelled {
		return outcome, nil
	}
	return outcome, waitErr
}

// failed reports a call that did not run to a zero exit.
func (o execOutcome) failed() bool {
	return o.TimedOut || o.Cancelled || o.ExitCode != 0
}

func (o execOutcome) render(command string, timeout, maxChars int) (string, bool) {
	if o.TimedOut {
		return fmt.Sprintf("Error: Command timed out after %d seconds: %s", timeout, command), false
	}
	if o.Cancelled {
		return "Error: Command cancelled: " + command, false
	}
	text := o.Output
	if o.ExitCode != 0 {
		text += fmt.Sprintf("\nExit code: %d", o.ExitCode)
	}
	if strings.TrimSpace(text) == "" {
		text = "(no output)"
	}
	return util.TruncateChars(text, maxChars)
}

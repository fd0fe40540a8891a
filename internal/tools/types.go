package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ag-tools/internal/util"
)

// Result is the text a tool call produced plus metadata for renderers.
type Result struct {
	ToolName   string `json:"tool_name"`
	Output     string `json:"output"`
	Preview    string `json:"-"`
	LineCount  int    `json:"line_count"`
	ByteCount  int    `json:"byte_count"`
	Truncated  bool   `json:"truncated"`
	Failed     bool   `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
}

// Tool describes a callable tool. Execute never returns an error: every
// failure is reported inside Result.Output and flagged with Result.Failed.
type Tool interface {
	Name() string
	Description() string
	Parameters() Schema
	ValidateParams(args map[string]any) []string
	Execute(ctx context.Context, args map[string]any) Result
}

// newResult builds a Result. failed is set by the tool from the outcome it
// observed, never inferred from the text.
func newResult(name string, start time.Time, output string, truncated, failed bool) Result {
	preview := util.Preview(strings.TrimSpace(output), 12, 2000)
	lineCount := 0
	if preview != "" {
		lineCount = strings.Count(output, "\n") + 1
	}
	return Result{
		ToolName:   name,
		Output:     output,
		Preview:    preview,
		LineCount:  lineCount,
		ByteCount:  len(output),
		Truncated:  truncated,
		Failed:     failed,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// recoverResult turns a panic inside Execute into an error result.
// It must be deferred directly by Execute.
func recoverResult(name string, start time.Time, res *Result) {
	if r := recover(); r != nil {
		*res = newResult(name, start, fmt.Sprintf("Error executing %s: %v", name, r), false, true)
	}
}

package tools

import (
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"ag-tools/internal/workspace"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultDenyPatterns block commands that destroy data or take the host down.
var DefaultDenyPatterns = []string{
	`\brm\s+-[rf]{1,2}\b`,
	`\bdel\s+/[fq]\b`,
	`\brmdir\s+/s\b`,
	`(?:^|[;&|]\s*)format\b`,
	`\b(mkfs|diskpart)\b`,
	`\bdd\s+if=`,
	`>\s*/dev/sd`,
	`\b(shutdown|reboot|poweroff)\b`,
	`:\(\)\s*\{.*\};\s*:`,
}

var (
	posixAbsPath   = regexp.MustCompile(`(?:^|[\s|>'"=])(/[^\s"'|;&<>]+)`)
	windowsAbsPath = regexp.MustCompile(`[A-Za-z]:\\[^\s"'|;&<>]+`)
)

type commandGuard struct {
	deny     []*regexp.Regexp
	allow    []*regexp.Regexp
	restrict bool
}

// newCommandGuard compiles the pattern lists. A nil deny list selects
// DefaultDenyPatterns; an empty non-nil list disables the deny check.
// Patterns that fail to compile are logged and skipped.
func newCommandGuard(deny, allow []string, restrict bool, logger *zap.Logger) *commandGuard {
	if deny == nil {
		deny = DefaultDenyPatterns
	}
	return &commandGuard{
		deny:     compilePatterns(deny, logger),
		allow:    compilePatterns(allow, logger),
		restrict: restrict,
	}
}

func compilePatterns(patterns []string, logger *zap.Logger) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn("ignoring invalid command pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		out = append(out, re)
	}
	return out
}

// check returns the reason a command is blocked, or "" if it may run.
func (g *commandGuard) check(command, cwd string) string {
	// NFKC folds lookalike characters so they cannot slip past the patterns.
	normalized := norm.NFKC.String(strings.TrimSpace(command))
	lower := strings.ToLower(normalized)

	for _, re := range g.deny {
		if re.MatchString(lower) {
			return "dangerous pattern detected"
		}
	}
	if len(g.allow) > 0 {
		allowed := false
		for _, re := range g.allow {
			if re.MatchString(lower) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "not in allowlist"
		}
	}
	if !g.restrict {
		return ""
	}

	if strings.Contains(normalized, "../") || strings.Contains(normalized, `..\`) {
		return "path traversal detected"
	}
	root, err := filepath.Abs(cwd)
	if err != nil {
		return "working dir unresolvable"
	}
	for _, path := range absolutePaths(normalized) {
		if !workspace.Contains(root, path) {
			return "path outside working dir"
		}
	}
	for _, field := range strings.Fields(normalized) {
		if workspace.IsDenylisted(strings.Trim(field, `"'`)) {
			return "credential file access"
		}
	}
	return ""
}

func absolutePaths(command string) []string {
	var paths []string
	if runtime.GOOS == "windows" {
		paths = append(paths, windowsAbsPath.FindAllString(command, -1)...)
	}
	for _, match := range posixAbsPath.FindAllStringSubmatch(command, -1) {
		paths = append(paths, match[1])
	}
	return paths
}

package workspace

import (
	"path/filepath"
	"strings"
)

// IsDenylisted returns true if the path names a credential file that commands
// must not read.
func IsDenylisted(path string) bool {
	lower := strings.ToLower(filepath.ToSlash(path))
	base := strings.ToLower(filepath.Base(path))

	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return true
	}
	for _, ext := range []string{".pem", ".key", ".p12", ".pfx"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	if strings.HasPrefix(base, "id_rsa") || strings.HasPrefix(base, "id_ed25519") {
		return true
	}
	if base == ".npmrc" || base == ".netrc" {
		return true
	}
	return strings.Contains(lower, ".aws/credentials") || strings.Contains(lower, ".docker/config.json")
}

package convert

import (
	"path/filepath"
	"runtime"
	"strings"
)

// fileURL formats an absolute filesystem path as a file:// URL. On
// platforms whose path separator is backslash, the result always begins
// with file:///.
func fileURL(absPath string) string {
	slashed := filepath.ToSlash(absPath)
	if runtime.GOOS == "windows" {
		slashed = strings.TrimPrefix(slashed, "/")
		return "file:///" + slashed
	}
	return "file://" + slashed
}

// Package locator resolves the headless-browser executable: an explicit
// override, else a platform-specific candidate list, else the OS's "find
// executable by name" fallback, as a standalone, side-effect-free
// operation so the launcher can call it without also spawning a process.
package locator

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/pdferr"
	"github.com/html2pdf/pool/internal/pdflog"
)

// Resolve returns the absolute path to a headless-browser executable.
//
// If override is non-empty, it must name an existing executable file or
// Resolve fails immediately — there is no fallback once an override is
// supplied. Otherwise Resolve walks platformCandidates() in order, and
// finally asks the OS to find a well-known executable name on PATH.
func Resolve(override string, logger arbor.ILogger) (string, error) {
	logger = pdflog.OrDefault(logger)

	if override != "" {
		if isExecutableFile(override) {
			logger.Debug().Str("path", override).Msg("using explicit browser override")
			return override, nil
		}
		return "", fmt.Errorf("locator: override %q: %w", override, pdferr.ErrBrowserNotFound)
	}

	for _, candidate := range platformCandidates() {
		if candidate == "" {
			continue
		}
		if isExecutableFile(candidate) {
			logger.Debug().Str("path", candidate).Msg("resolved browser from candidate list")
			return candidate, nil
		}
	}

	for _, name := range executableNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug().Str("path", path).Str("name", name).Msg("resolved browser from PATH")
			return path, nil
		}
	}

	logger.Warn().Msg("no browser executable found")
	return "", pdferr.ErrBrowserNotFound
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	// On POSIX, any execute permission bit is enough; os.Stat doesn't tell
	// us whether *we* can execute it, so we rely on the caller's own attempt
	// to run it to surface permission errors. Windows file modes carry no
	// execute bits, so there any existing non-directory file is accepted.
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return false
	}
	return true
}

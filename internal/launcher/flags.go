package launcher

import (
	"fmt"
	"sort"
)

// requiredFlags are the exact browser command-line flags this launcher
// passes on every invocation — spelling matters for compatibility, so
// these are never derived from a map the caller can mutate.
var requiredFlags = []string{
	"--headless",
	"--disable-gpu",
	"--no-sandbox",
	"--disable-web-security",
	"--allow-file-access-from-files",
	"--disable-extensions",
	"--disable-popup-blocking",
	"--disable-translate",
}

// buildArgs assembles the full argument list for one browser invocation:
// the required flags (in a stable, sorted order for reproducible logs),
// the remote-debugging-port flag for the allocated port, and the
// "about:blank" positional argument that forces a blank first tab instead
// of the welcome page.
func buildArgs(port int) []string {
	args := make([]string, 0, len(requiredFlags)+2)
	sorted := append([]string(nil), requiredFlags...)
	sort.Strings(sorted)
	args = append(args, sorted...)
	args = append(args, fmt.Sprintf("--remote-debugging-port=%d", port))
	args = append(args, "about:blank")
	return args
}

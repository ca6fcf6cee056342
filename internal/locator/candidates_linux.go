//go:build linux

package locator

// executableNames are tried via exec.LookPath as a last resort, after the
// well-known path candidates below.
var executableNames = [...]string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

func platformCandidates() []string {
	return []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
}

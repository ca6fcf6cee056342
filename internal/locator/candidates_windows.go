//go:build windows

package locator

import (
	"os"
	"path/filepath"
)

const execSuffix = `Application\chrome.exe`

var executableNames = [...]string{
	"chrome.exe",
}

func platformCandidates() []string {
	localAppData := os.Getenv("LOCALAPPDATA")
	return []string{
		filepath.Join(localAppData, `Google\Chrome`, execSuffix),
		filepath.Join(`C:\Program Files`, `Google\Chrome`, execSuffix),
		filepath.Join(`C:\Program Files (x86)`, `Google\Chrome`, execSuffix),
		filepath.Join(localAppData, `Google\Chrome SxS`, execSuffix),
		filepath.Join(`C:\Program Files`, `Google\Chrome SxS`, execSuffix),
		filepath.Join(`C:\Program Files (x86)`, `Google\Chrome SxS`, execSuffix),
		filepath.Join(localAppData, "Chromium", execSuffix),
		filepath.Join(`C:\Program Files`, "Chromium", execSuffix),
		filepath.Join(`C:\Program Files (x86)`, "Chromium", execSuffix),
	}
}

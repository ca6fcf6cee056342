// Command html2pdf converts a single HTML file to PDF using the shared
// browser pool, or runs that pool as a long-lived service via the serve
// subcommand.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command scout parses HTML and XML documents, queries them with CSS
// selectors and crawls sites, storing crawl runs in SQLite.
//
// Usage:
//
//	scout render page.html -f markdown
//	scout select "article > p" https://example.com/
//	scout crawl https://example.com/ -n 50 -d runs.db
package main

import (
	"fmt"
	"os"

	"github.com/pyscout/scout/internal/cmd"
)

// Version and BuildTime are set with -ldflags "-X main.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

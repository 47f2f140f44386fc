// Command docsync syncs a document corpus into a vector index.
package main

import (
	"os"

	"github.com/seconds-0/slack-support-bot/internal/adapters/driving/cli"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// wsconn CLI - connects to a WebSocket server, prints every frame and lifecycle
// event, and forwards stdin lines as text frames.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	root, err := newRootCmd(os.Getenv)
	if err == nil {
		err = root.Execute()
	}

	if err != nil {
		fmt.Fprint(os.Stderr, color.RedString("error: "))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

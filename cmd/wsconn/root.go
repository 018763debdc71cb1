package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(getenv func(string) string) (*cobra.Command, error) {
	defaults, err := envDefaults(getenv)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:           "wsconn",
		Short:         "Long-lived WebSocket client",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newConnectCmd(defaults))

	return root, nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd is the ordmapd entry point. serve runs the daemon, demo walks
// through the tree operations locally, and the remaining commands are
// gRPC clients.
var RootCmd = &cobra.Command{
	Use:           "ordmapd",
	Short:         "Ordered key/value map served over gRPC and HTTP",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hublink",
		Short: "Client for legacy SignalR persistent-connection endpoints",
		Long: `hublink speaks the classic ASP.NET SignalR persistent-connection
protocol over WebSockets: negotiate, connect, start, then hub calls
and server pushes on one long-lived connection, with automatic
heartbeat monitoring and reconnection.

Commands read hublink.yaml from the working directory when present;
flags override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		listenCmd(),
		callCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

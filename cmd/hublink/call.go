package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func callCmd() *cobra.Command {
	var flags connectionFlags

	cmd := &cobra.Command{
		Use:   "call <hub> <method> [json-arg...]",
		Short: "Connect, invoke one hub method, and print the result",
		Long: `Connect to the endpoint, invoke a single hub method, print the
JSON result on stdout, and end the session.

Each argument after the method name is parsed as JSON; arguments
that do not parse are sent as plain strings.

Examples:
  hublink call chat send '"hello"'
  hublink call stock getPrice '"MSFT"'
  hublink call --url=https://example.com/signalr --hub=chat chat send hi`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(flags, args[0], args[1], args[2:])
		},
	}

	flags.register(cmd.Flags())

	return cmd
}

func runCall(flags connectionFlags, hub, method string, rawArgs []string) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	// The hub being called must be announced during the handshake.
	if !containsHub(cfg.Hubs, hub) {
		cfg.Hubs = append(cfg.Hubs, hub)
	}

	args := make([]any, 0, len(rawArgs))
	for _, raw := range rawArgs {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		args = append(args, v)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newClient(cfg, nil)
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.End()

	result, err := client.Call(ctx, hub, method, args...)
	if err != nil {
		return fmt.Errorf("call %s.%s: %w", hub, method, err)
	}

	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	fmt.Println(string(result))
	return nil
}

func containsHub(hubs []string, hub string) bool {
	for _, h := range hubs {
		if h == hub {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hublink-dev/hublink/pkg/hublink"
)

func listenCmd() *cobra.Command {
	var (
		flags       connectionFlags
		methods     []string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Connect and print server pushes until interrupted",
		Long: `Connect to the endpoint and print every push for the subscribed
hub methods as one JSON line per message. The connection is kept
alive across drops; press Ctrl-C to end the session.

Examples:
  hublink listen --url=https://example.com/signalr --hub=chat --on=chat.newMessage
  hublink listen --on=chat.newMessage --on=presence.userJoined
  hublink listen --metrics-addr=:9090 --on=chat.newMessage`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(flags, methods, metricsAddr)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringArrayVar(&methods, "on", nil, "hub.method pair to subscribe to (repeatable)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runListen(flags connectionFlags, methods []string, metricsAddr string) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if len(methods) == 0 {
		return fmt.Errorf("at least one --on=hub.method subscription is required")
	}

	var metrics *hublink.Metrics
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = hublink.NewMetrics(hublink.WithRegistry(reg))
		go serveMetrics(metricsAddr, reg)
	}

	client := newClient(cfg, metrics)

	out := json.NewEncoder(os.Stdout)
	for _, pair := range methods {
		hub, method, ok := strings.Cut(pair, ".")
		if !ok || hub == "" || method == "" {
			return fmt.Errorf("subscription %q is not of the form hub.method", pair)
		}
		client.On(hub, method, func(args []json.RawMessage) {
			out.Encode(map[string]any{
				"hub":    hub,
				"method": method,
				"args":   args,
			})
		})
	}

	client.Subscribe(func(ev hublink.Event) {
		switch ev.Kind {
		case hublink.EventConnected:
			fmt.Fprintf(os.Stderr, "connected (id %s)\n", client.ConnectionID())
		case hublink.EventDisconnected:
			fmt.Fprintf(os.Stderr, "disconnected (%s)\n", ev.Reason)
		case hublink.EventReconnecting:
			fmt.Fprintf(os.Stderr, "reconnecting (attempt %d)\n", ev.Attempt)
		case hublink.EventError:
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Start(ctx); err != nil {
		var cerr *hublink.Error
		// Fatal errors end the command; recoverable ones are retried by
		// the client itself.
		if errors.As(err, &cerr) && cerr.Code.Recovery() == hublink.RecoveryNone {
			return err
		}
	}

	<-ctx.Done()
	client.End()
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "metrics server: %s\n", err)
	}
}

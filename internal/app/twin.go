package app

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uptrms/bddkit/internal/metrics"
	"github.com/uptrms/bddkit/internal/twin"
)

func newTwinCmd(o *options) *cobra.Command {
	var (
		host      string
		port      int
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "twin",
		Short: "Serve an in-memory UPTRMS API for scenarios to run against",
		Long: `Starts an HTTP server that implements the UPTRMS collection, audit and
zero trust access endpoints in memory. Point base_url in bddkit.yaml at it.
The server stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port < 0 || port > 65535 {
				return fmt.Errorf("invalid port %d", port)
			}
			logger, err := o.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			twinOpts := []twin.Option{twin.WithLogger(logger)}
			if !noMetrics {
				twinOpts = append(twinOpts, twin.WithMetrics(metrics.NewMetrics()))
			}

			addr := net.JoinHostPort(host, strconv.Itoa(port))
			return twin.New(twinOpts...).Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}

package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/cmd/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

var (
	log = logger.GetLogger("cli")

	once       bool
	handleTime time.Duration

	// HelpdeskCommands represents the helpdesk command group
	HelpdeskCommands = &cobra.Command{
		Use:                "helpdesk",
		Short:              "Submit and serve prioritized help requests",
		PersistentPreRunE:  util.OpenApp,
		PersistentPostRunE: util.CloseApp,
	}

	submitCmd = &cobra.Command{
		Use:   "submit [requester] [priority]",
		Short: "Queues a request. Submitting again replaces the priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("priority must be a number: %w", err)
			}
			if err := util.App.Queue.Submit(cmd.Context(), args[0], priority); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "submitted successfully")
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len",
		Short: "Prints the number of waiting requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := util.App.Queue.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d waiting\n", n)
			return nil
		},
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serves requests by priority until interrupted",
		Long:  "Serves requests by priority until interrupted. While the queue is empty the worker waits for the next submission. With --metrics-endpoint the counters of all components are exposed in Prometheus format under /metrics.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add backend flags to the helpdesk command
	util.SetupConfigFlags(HelpdeskCommands)

	// Add subcommands
	HelpdeskCommands.AddCommand(submitCmd)
	HelpdeskCommands.AddCommand(lenCmd)
	HelpdeskCommands.AddCommand(serveCmd)

	// Add flags specific to serve
	serveCmd.Flags().BoolVar(&once, "once", false, util.WrapString("Serve a single request and exit"))
	serveCmd.Flags().DurationVar(&handleTime, "handle-time", 0, util.WrapString("Simulated time spent on each request"))
	serveCmd.Flags().String("metrics-endpoint", "", util.WrapString("Address for the Prometheus /metrics endpoint (e.g. :9090, empty = disabled)"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		srv := startMetricsServer(endpoint)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if once {
		requester, err := util.App.Queue.ServeNext(ctx)
		if err != nil {
			return err
		}
		return handle(ctx, requester)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "serving requests, press ctrl+c to stop")
	return util.App.Queue.Run(ctx, func(ctx context.Context, requester string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "serving %s\n", requester)
		return handle(ctx, requester)
	})
}

// handle simulates the work on one request
func handle(ctx context.Context, requester string) error {
	if handleTime <= 0 {
		return nil
	}
	select {
	case <-time.After(handleTime):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("request from %s interrupted: %w", requester, ctx.Err())
	}
}

// startMetricsServer exposes all registered VictoriaMetrics counters
func startMetricsServer(endpoint string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics endpoint failed: %v", err)
		}
	}()
	log.Infof("metrics available at http://%s/metrics", endpoint)
	return srv
}

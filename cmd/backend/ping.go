package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docgate/internal/db"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Connect to the database once and print the connection status",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	mgr := db.NewManager(cfg.DB(), newDialer(cfg, logger), db.WithLogger(logger))
	return ping(ctx, mgr, cmd.OutOrStdout(), cfg.HTTP.ShutdownTimeout)
}

// ping connects with the normal retry policy, writes the Status as JSON to
// out and closes the connection.
func ping(ctx context.Context, mgr *db.Manager, out io.Writer, timeout time.Duration) error {
	connectErr := mgr.Connect(ctx)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mgr.Status()); err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	closeErr := closeManager(mgr, timeout)
	if connectErr != nil {
		connectErr = fmt.Errorf("connect database: %w", connectErr)
	}
	return errors.Join(connectErr, closeErr)
}

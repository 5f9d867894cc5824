package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/cmd/session-client/keepalive"
	"github.com/openkcm/session-client/cmd/session-client/login"
	"github.com/openkcm/session-client/cmd/session-client/logout"
	"github.com/openkcm/session-client/cmd/session-client/migrate"
	"github.com/openkcm/session-client/cmd/session-client/refresh"
	"github.com/openkcm/session-client/cmd/session-client/request"
	"github.com/openkcm/session-client/cmd/session-client/status"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	gracefulShutdown time.Duration
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Session Client Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session-client",
		Short: "Session Client",
		Long: "KCM Session Client logs a user in with the password grant, keeps the " +
			"token pair fresh and gates requests on the session state.",
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 0, "graceful shutdown of long running commands")

	cmd.AddCommand(
		versionCmd,
		login.Cmd(BuildInfo),
		logout.Cmd(BuildInfo),
		status.Cmd(BuildInfo),
		refresh.Cmd(BuildInfo),
		keepalive.Cmd(BuildInfo),
		request.Cmd(BuildInfo),
		migrate.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "failed to run the session client", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if gracefulShutdown > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

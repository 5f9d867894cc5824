package status

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
	"github.com/openkcm/session-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var cmd *cobra.Command

	cmd = cmdutils.CobraCommand(
		"status",
		"Show the session",
		"Prints the stored session as YAML without modifying it.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.StatusMain(ctx, cfg, cmd.OutOrStdout())
		},
	)

	return cmd
}

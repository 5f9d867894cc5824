package refresh

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
		"refresh",
		"Refresh the access token",
		"Exchanges the stored refresh token for a new token pair.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.RefreshMain(ctx, cfg, cmd.OutOrStdout())
		},
	)

	return cmd
}

package logout

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
	"github.com/openkcm/session-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var (
		cmd  *cobra.Command
		opts business.LogoutOptions
	)

	cmd = cmdutils.CobraCommand(
		"logout",
		"End the session",
		"Clears the stored session. With --purge the stored record is removed.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			opts.Out = cmd.OutOrStdout()
			return business.LogoutMain(ctx, cfg, opts)
		},
	)

	cmd.Flags().BoolVar(&opts.Purge, "purge", false, "remove the stored session record")

	return cmd
}

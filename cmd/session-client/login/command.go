package login

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
		opts business.LoginOptions
	)

	cmd = cmdutils.CobraCommand(
		"login",
		"Start a session",
		"Exchanges the username and password for a token pair and stores the session. "+
			"The password is prompted for when it is not given.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			opts.In = cmd.InOrStdin()
			opts.Out = cmd.OutOrStdout()
			return business.LoginMain(ctx, cfg, opts)
		},
	)

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "username to log in with")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "password, prompted for when empty")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

package request

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
		opts business.RequestOptions
	)

	cmd = cmdutils.CobraCommand(
		"request",
		"Send an authenticated request",
		"Sends an HTTP request with the session's access token. "+
			"The request is aborted and the session ends when it has expired.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			opts.Out = cmd.OutOrStdout()
			opts.Err = cmd.ErrOrStderr()
			return business.RequestMain(ctx, cfg, opts)
		},
	)

	cmd.Flags().StringVarP(&opts.Method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVar(&opts.URL, "url", "", "request URL")
	cmd.Flags().StringVarP(&opts.Body, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "request header as 'Name: value'")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

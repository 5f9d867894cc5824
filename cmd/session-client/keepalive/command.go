package keepalive

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"keepalive",
		"Keep the session fresh",
		"Periodically checks the session and refreshes the access token ahead of its expiry. "+
			"Exits once the session expires.",
		buildInfo,
		cmdutils.RunAsService,
		business.KeepAliveMain,
	)
}

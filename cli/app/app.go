package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/cryptogogue/volwal/cli/account"
	"github.com/cryptogogue/volwal/cli/craft"
	"github.com/cryptogogue/volwal/cli/wallet"
	"github.com/cryptogogue/volwal/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "Volwal\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a volwal instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "volwal"
	ctl.Version = config.Version
	ctl.Usage = "Volition wallet client"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, wallet.NewCommands()...)
	ctl.Commands = append(ctl.Commands, craft.NewCommands()...)
	ctl.Commands = append(ctl.Commands, account.NewCommands()...)
	return ctl
}

package account

import (
	"fmt"
	"text/tabwriter"

	"github.com/cryptogogue/volwal/cli/cmdargs"
	"github.com/cryptogogue/volwal/cli/options"
	"github.com/cryptogogue/volwal/pkg/account"
	"github.com/urfave/cli"
)

// NewCommands returns 'account' command.
func NewCommands() []cli.Command {
	flags := append([]cli.Flag{}, options.Account...)
	flags = append(flags, options.Common...)
	flags = append(flags, options.Timeout,
		cli.BoolFlag{
			Name:  "reset-inventory-nonce",
			Usage: "Reset locally stored inventory nonce so that the inventory is reloaded",
		},
		cli.BoolFlag{
			Name:  "offline",
			Usage: "Do not query the node",
		},
	)
	return []cli.Command{{
		Name:  "account",
		Usage: "inspect wallet accounts",
		Subcommands: []cli.Command{
			{
				Name:      "debug",
				Usage:     "print account state known to the wallet and the node",
				UsageText: "debug -n <network> -a <account> [--reset-inventory-nonce] [--offline] [--timeout <duration>]",
				Action:    debugAccount,
				Flags:     flags,
			},
		},
	}}
}

func debugAccount(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	network, acc, err := options.GetAccountFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	env, exitErr := options.GetEnv(ctx)
	if exitErr != nil {
		return exitErr
	}
	defer env.Close()

	st, err := account.NewState(env.Wallet, network, acc)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if ctx.Bool("reset-inventory-nonce") {
		if err := st.SetInventoryNonce(0); err != nil {
			return cli.NewExitError(fmt.Errorf("failed to reset inventory nonce: %w", err), 1)
		}
	}
	if !ctx.Bool("offline") {
		gctx, cancel := options.GetTimeoutContext(ctx)
		defer cancel()
		if err := st.Refresh(gctx, env.NodeClient()); err != nil {
			return cli.NewExitError(fmt.Errorf("failed to get account info: %w", err), 1)
		}
	}

	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Account:\t%s\n", st.AccountID())
	fmt.Fprintf(tw, "URL:\t%s\n", st.AccountURL())
	if st.HasInfo() {
		fmt.Fprintf(tw, "Balance:\t%d\n", st.Balance())
		fmt.Fprintf(tw, "Transaction Nonce:\t%d\n", st.Nonce())
	}
	fmt.Fprintf(tw, "Inventory Nonce:\t%d\n", st.InventoryNonce())
	fmt.Fprintf(tw, "Inventory Nonce (Node):\t%d\n", st.NodeInventoryNonce())
	return tw.Flush()
}

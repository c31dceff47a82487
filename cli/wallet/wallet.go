package wallet

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cryptogogue/volwal/cli/cmdargs"
	"github.com/cryptogogue/volwal/cli/input"
	"github.com/cryptogogue/volwal/cli/options"
	"github.com/cryptogogue/volwal/pkg/wallet"
	"github.com/urfave/cli"
)

var (
	errNoUser        = errors.New("wallet has no password set, run 'wallet init' first")
	errAlreadyInited = errors.New("wallet is already initialized, use 'wallet change-password' to change the password")
	errNoName        = errors.New("network name is mandatory and should be passed using (--name) flag")
	errNoURL         = errors.New("node URL is mandatory and should be passed using (--url) flag")
)

var (
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "network name",
	}
	keyFlag = cli.StringFlag{
		Name:  "key, k",
		Value: "master",
		Usage: "key name",
	}
)

func withCommon(fs ...cli.Flag) []cli.Flag {
	return append(fs, options.Common...)
}

// NewCommands returns 'wallet' command.
func NewCommands() []cli.Command {
	accountFlags := withCommon(options.Account...)
	return []cli.Command{{
		Name:  "wallet",
		Usage: "initialize and manage local wallet",
		Subcommands: []cli.Command{
			{
				Name:   "init",
				Usage:  "set the wallet password",
				Action: initWallet,
				Flags:  withCommon(),
			},
			{
				Name:   "change-password",
				Usage:  "change the wallet password re-encrypting all keys",
				Action: changePassword,
				Flags:  withCommon(),
			},
			{
				Name:   "login",
				Usage:  "start a wallet session",
				Action: login,
				Flags:  withCommon(),
			},
			{
				Name:   "logout",
				Usage:  "end the wallet session",
				Action: logout,
				Flags:  withCommon(),
			},
			{
				Name:   "status",
				Usage:  "print wallet status",
				Action: status,
				Flags:  withCommon(),
			},
			{
				Name:      "reset",
				Usage:     "delete all wallet data",
				UsageText: "reset [--force]",
				Action:    reset,
				Flags: withCommon(cli.BoolFlag{
					Name:  "force",
					Usage: "Do not ask for a confirmation",
				}),
			},
			{
				Name:  "network",
				Usage: "manage networks",
				Subcommands: []cli.Command{
					{
						Name:      "add",
						Usage:     "add a network or update its node URL",
						UsageText: "add --name <name> --url <url> [--identity <identity>]",
						Action:    addNetwork,
						Flags: withCommon(nameFlag,
							cli.StringFlag{
								Name:  "url, u",
								Usage: "node URL",
							},
							cli.StringFlag{
								Name:  "identity",
								Usage: "network identity",
							},
						),
					},
					{
						Name:   "list",
						Usage:  "list networks",
						Action: listNetworks,
						Flags:  withCommon(),
					},
					{
						Name:      "remove",
						Usage:     "remove a network with all of its accounts",
						UsageText: "remove --name <name>",
						Action:    removeNetwork,
						Flags:     withCommon(nameFlag),
					},
				},
			},
			{
				Name:  "account",
				Usage: "manage accounts",
				Subcommands: []cli.Command{
					{
						Name:      "import",
						Usage:     "import an account key",
						UsageText: "import -n <network> -a <account> [--key <name>]",
						Action:    importAccount,
						Flags:     append(accountFlags, keyFlag),
					},
					{
						Name:      "list",
						Usage:     "list accounts of the network",
						UsageText: "list -n <network>",
						Action:    listAccounts,
						Flags: withCommon(cli.StringFlag{
							Name:  "network, n",
							Usage: "network name",
						}),
					},
					{
						Name:      "dump-key",
						Usage:     "print decrypted account key",
						UsageText: "dump-key -n <network> -a <account> [--key <name>]",
						Action:    dumpKey,
						Flags:     append(accountFlags, keyFlag),
					},
				},
			},
		},
	}}
}

func getEnv(ctx *cli.Context) (*options.Env, error) {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return nil, err
	}
	env, exitErr := options.GetEnv(ctx)
	if exitErr != nil {
		return nil, exitErr
	}
	return env, nil
}

func readUserPassword(w *wallet.AppState) (string, error) {
	if !w.HasUser() {
		return "", errNoUser
	}
	pass, err := input.ReadPassword("Enter wallet password > ")
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	if err := w.AssertPassword(pass); err != nil {
		return "", err
	}
	return pass, nil
}

func initWallet(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.Wallet.HasUser() {
		return cli.NewExitError(errAlreadyInited, 1)
	}
	pass, err := input.ReadNewPassword("Enter new wallet password > ", "Confirm wallet password > ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := env.Wallet.SetPassword(pass, true); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "Wallet initialized")
	return nil
}

func changePassword(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	pass, err := readUserPassword(env.Wallet)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	newPass, err := input.ReadNewPassword("Enter new wallet password > ", "Confirm wallet password > ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := env.Wallet.ChangePassword(pass, newPass); err != nil {
		return cli.NewExitError(fmt.Errorf("password is not changed: %w", err), 1)
	}
	fmt.Fprintln(ctx.App.Writer, "Password changed")
	return nil
}

func login(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if !env.Wallet.HasUser() {
		return cli.NewExitError(errNoUser, 1)
	}
	pass, err := input.ReadPassword("Enter wallet password > ")
	if err != nil {
		return cli.NewExitError(fmt.Errorf("error reading password: %w", err), 1)
	}
	ok, err := env.Wallet.Login(pass)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ok {
		return cli.NewExitError(wallet.ErrInvalidPassword, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "Logged in")
	return nil
}

func logout(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Wallet.Logout(); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "Logged out")
	return nil
}

func status(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	w := env.Wallet
	flags := w.Flags()
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Initialized:\t%t\n", w.HasUser())
	fmt.Fprintf(tw, "Logged in:\t%t\n", w.IsLoggedIn())
	fmt.Fprintf(tw, "Networks:\t%d\n", len(w.NetworkNames()))
	fmt.Fprintf(tw, "First network pending:\t%t\n", flags.PromptFirstNetwork)
	fmt.Fprintf(tw, "First account pending:\t%t\n", flags.PromptFirstAccount)
	fmt.Fprintf(tw, "First transaction pending:\t%t\n", flags.PromptFirstTransaction)
	return tw.Flush()
}

func reset(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if !ctx.Bool("force") {
		if err := input.Confirm("All wallet data will be deleted"); err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	if err := env.Wallet.DeleteStorage(); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "Wallet data deleted")
	return nil
}

func addNetwork(ctx *cli.Context) error {
	name := ctx.String("name")
	if len(name) == 0 {
		return cli.NewExitError(errNoName, 1)
	}
	url := ctx.String("url")
	if len(url) == 0 {
		return cli.NewExitError(errNoURL, 1)
	}
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Wallet.AffirmNetwork(name, ctx.String("identity"), url); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func listNetworks(ctx *cli.Context) error {
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	for _, name := range env.Wallet.NetworkNames() {
		n, err := env.Wallet.Network(name)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d accounts\n", name, n.Identity, n.NodeURL, len(n.Accounts))
	}
	return tw.Flush()
}

func removeNetwork(ctx *cli.Context) error {
	name := ctx.String("name")
	if len(name) == 0 {
		return cli.NewExitError(errNoName, 1)
	}
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Wallet.DeleteNetwork(name); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func importAccount(ctx *cli.Context) error {
	network, acc, err := options.GetAccountFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	pass, err := readUserPassword(env.Wallet)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var sec wallet.Secrets
	sec.PhraseOrKey, err = input.ReadPassword("Enter mnemonic phrase or key > ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	sec.PrivateKeyHex, err = input.ReadPassword("Enter private key (hex) > ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	sec.PublicKeyHex, err = input.ReadLine("Enter public key (hex, empty to derive) > ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	sec.PublicKeyHex = strings.TrimSpace(sec.PublicKeyHex)

	if err := env.Wallet.ImportAccount(network, acc, ctx.String("key"), pass, sec); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "Account %s imported\n", acc)
	return nil
}

func listAccounts(ctx *cli.Context) error {
	network := ctx.String("network")
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	n, err := env.Wallet.Network(network)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	for _, name := range n.AccountNames() {
		a := n.Accounts[name]
		fmt.Fprintf(tw, "%s\t%d keys\tinventory nonce %d\n", name, len(a.Keys), a.InventoryNonce)
	}
	if len(n.PendingAccounts) > 0 {
		fmt.Fprintf(tw, "Pending requests:\t%d\n", len(n.PendingAccounts))
	}
	return tw.Flush()
}

func dumpKey(ctx *cli.Context) error {
	network, acc, err := options.GetAccountFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	env, err := getEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	pass, err := readUserPassword(env.Wallet)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	sec, err := env.Wallet.DecryptKey(network, acc, ctx.String("key"), pass)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "Phrase or key: %s\n", sec.PhraseOrKey)
	fmt.Fprintf(ctx.App.Writer, "Private key: %s\n", sec.PrivateKeyHex)
	fmt.Fprintf(ctx.App.Writer, "Public key: %s\n", sec.PublicKeyHex)
	return nil
}

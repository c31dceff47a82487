package craft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/cryptogogue/volwal/cli/cmdargs"
	"github.com/cryptogogue/volwal/pkg/crafting"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/kballard/go-shellquote"
	"github.com/urfave/cli"
)

const (
	sessionKey          = "session"
	exitFuncKey         = "exitFunc"
	readlineInstanceKey = "readlineKey"
	unsetValue          = "-"
)

var commands = []cli.Command{
	{
		Name:        "exit",
		Usage:       "Exit the crafting shell",
		Description: "Exit the crafting shell",
		Action:      handleExit,
	},
	{
		Name:        "methods",
		Usage:       "List methods, available ones are marked with '*'",
		Description: "List methods, available ones are marked with '*'",
		Action:      handleMethods,
	},
	{
		Name:        "assets",
		Usage:       "List visible assets",
		Description: "List visible assets, selected ones are marked with '+', utilized ones with '!'",
		Action:      handleAssets,
	},
	{
		Name:      "select",
		Usage:     "Toggle asset selection",
		UsageText: `select <asset>...`,
		Description: `select <asset>...
at least one asset is mandatory, example:
> select a1 a2`,
		Action: handleSelect,
	},
	{
		Name:      "add",
		Usage:     "Add an invocation",
		UsageText: `add <method> [<param>=<value>...]`,
		Description: `add <method> [<param>=<value>...]
<method> is mandatory, parameters are optional, '=' in names and values
is escaped with a backslash, example:
> add smelt ore=a1 fuel=c1`,
		Action: handleAdd,
	},
	{
		Name:      "batch",
		Usage:     "Add invocations of a single-asset method for selected assets",
		UsageText: `batch <method>`,
		Description: `batch <method>
<method> is mandatory and must have exactly one asset parameter, example:
> batch craft`,
		Action: handleBatch,
	},
	{
		Name:      "set",
		Usage:     "Set invocation parameter",
		UsageText: `set <index> <param> <value>`,
		Description: `set <index> <param> <value>
all parameters are mandatory, use '-' to unset an asset parameter, example:
> set 0 ore a1`,
		Action: handleSet,
	},
	{
		Name:      "options",
		Usage:     "List assets eligible for invocation parameter",
		UsageText: `options <index> <param>`,
		Action:    handleOptions,
	},
	{
		Name:      "remove",
		Usage:     "Remove invocation",
		UsageText: `remove <index>`,
		Action:    handleRemove,
	},
	{
		Name:        "show",
		Usage:       "Show invocations",
		Description: "Show invocations with their parameters and state",
		Action:      handleShow,
	},
	{
		Name:        "reset",
		Usage:       "Drop all invocations",
		Description: "Drop all invocations",
		Action:      handleReset,
	},
	{
		Name:        "compose",
		Usage:       "Print transaction JSON",
		Description: "Print transaction JSON without submitting it",
		Action:      handleCompose,
	},
	{
		Name:        "submit",
		Usage:       "Move transaction to pending",
		Description: "Compose the transaction, move it to pending and remove utilized assets from the inventory",
		Action:      handleSubmit,
	},
	{
		Name:      "send",
		Usage:     "Send selected assets to another account",
		UsageText: `send <recipient>`,
		Description: `send <recipient>
<recipient> is mandatory, selected assets are moved to pending and removed
from the inventory, example:
> send bob`,
		Action: handleSend,
	},
	{
		Name:        "account",
		Usage:       "Show maker account state",
		Description: "Show maker account state, node information is cached until 'refresh'",
		Action:      handleAccount,
	},
	{
		Name:        "refresh",
		Usage:       "Query the node for maker account state",
		Description: "Drop cached node information and query the node again",
		Action:      handleRefresh,
	},
	{
		Name:      "tag",
		Usage:     "Tag assets",
		UsageText: `tag <tag> <asset>...`,
		Action:    handleTag,
	},
	{
		Name:      "untag",
		Usage:     "Remove tag from assets",
		UsageText: `untag <tag> <asset>...`,
		Action:    handleUntag,
	},
	{
		Name:      "hide",
		Usage:     "Hide assets with the tag",
		UsageText: `hide <tag>`,
		Action:    handleHide,
	},
	{
		Name:      "unhide",
		Usage:     "Show assets with the tag",
		UsageText: `unhide <tag>`,
		Action:    handleUnhide,
	},
}

var completer *readline.PrefixCompleter

func init() {
	var pcItems []readline.PrefixCompleterInterface
	for _, c := range commands {
		if !c.Hidden {
			pcItems = append(pcItems, readline.PcItem(c.Name))
		}
	}
	completer = readline.NewPrefixCompleter(pcItems...)
}

// Various errors.
var (
	ErrMissingParameter = errors.New("missing argument")
	ErrInvalidParameter = errors.New("can't parse argument")
)

// Shell is an interactive crafting session.
type Shell struct {
	shell *cli.App
}

func newShell(sess *session, onExit func(int), c *readline.Config) (*Shell, error) {
	if c.AutoComplete == nil {
		// Autocomplete commands on TAB.
		c.AutoComplete = completer
	}
	l, err := readline.NewEx(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	ctl := cli.NewApp()
	ctl.Name = "Crafting shell"

	// Note: need to set empty `ctl.HelpName` and `ctl.UsageText`, otherwise
	// `filepath.Base(os.Args[0])` will be used which is `volwal`.
	ctl.HelpName = ""
	ctl.UsageText = ""

	ctl.Writer = l.Stdout()
	ctl.ErrWriter = l.Stderr()
	ctl.Usage = "Interactive crafting transaction composer"

	// Override default error handler in order not to exit on error.
	ctl.ExitErrHandler = func(context *cli.Context, err error) {}

	ctl.Commands = commands
	ctl.Metadata = map[string]interface{}{
		sessionKey:          sess,
		exitFuncKey:         onExit,
		readlineInstanceKey: l,
	}
	return &Shell{shell: ctl}, nil
}

func getSessionFromApp(app *cli.App) *session {
	return app.Metadata[sessionKey].(*session)
}

func getExitFuncFromContext(app *cli.App) func(int) {
	return app.Metadata[exitFuncKey].(func(int))
}

func getReadlineInstanceFromContext(app *cli.App) *readline.Instance {
	return app.Metadata[readlineInstanceKey].(*readline.Instance)
}

func startShell(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	sess, exitErr := getSessionFromContext(ctx)
	if exitErr != nil {
		return exitErr
	}
	defer sess.Close()
	if err := sess.startServices(); err != nil {
		return cli.NewExitError(err, 1)
	}

	sh, err := newShell(sess, func(int) {}, &readline.Config{
		Prompt: "\033[32mcraft>\033[0m ",
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := sh.Run(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// Run waits for user input from Stdin and executes the passed command.
func (c *Shell) Run() error {
	l := getReadlineInstanceFromContext(c.shell)
	defer l.Close()
	for {
		line, err := l.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil // OK, stop execution.
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err) // Critical error, stop execution.
		}

		args, err := shellquote.Split(line)
		if err != nil {
			writeErr(c.shell.ErrWriter, fmt.Errorf("failed to parse arguments: %w", err))
			continue // Not a critical error, continue execution.
		}
		if len(args) == 0 {
			continue
		}

		err = c.shell.Run(append([]string{"craft"}, args...))
		if err != nil {
			writeErr(c.shell.ErrWriter, err) // Various command/flags parsing errors and execution errors.
		}
	}
}

func handleExit(c *cli.Context) error {
	l := getReadlineInstanceFromContext(c.App)
	_ = l.Close()
	exit := getExitFuncFromContext(c.App)
	fmt.Fprintln(c.App.Writer, "Bye!")
	exit(0)
	return nil
}

func handleMethods(c *cli.Context) error {
	sess := getSessionFromApp(c.App)
	return printMethods(c.App.Writer, sess.ctrl.Binding())
}

func handleAssets(c *cli.Context) error {
	sess := getSessionFromApp(c.App)
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, a := range sess.view.VisibleAssets() {
		mark := " "
		if sess.ctrl.IsUtilized(a.ID) {
			mark = "!"
		} else if sess.view.IsSelected(a.ID) {
			mark = "+"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", mark, a.ID, a.Type, strings.Join(a.Tags, ","))
	}
	return tw.Flush()
}

func handleSelect(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <asset>", ErrMissingParameter)
	}
	sess := getSessionFromApp(c.App)
	pool := sess.inv.Assets()
	for _, id := range args {
		if !pool.Has(schema.AssetID(id)) {
			return fmt.Errorf("%w: %s", crafting.ErrAssetNotFound, id)
		}
	}
	for _, id := range args {
		sess.view.ToggleAssetSelection(schema.AssetID(id))
	}
	fmt.Fprintf(c.App.Writer, "%d selected\n", len(sess.view.Selection()))
	return nil
}

func handleAdd(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <method>", ErrMissingParameter)
	}
	sess := getSessionFromApp(c.App)
	params, err := cmdargs.ParseParams(args[1:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	inv, err := cmdargs.Invocation{Method: args[0], Params: params}.Apply(sess.ctrl)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "#%d %s added\n", len(sess.ctrl.Invocations())-1, inv.Method().Name)
	return nil
}

func handleBatch(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <method>", ErrMissingParameter)
	}
	sess := getSessionFromApp(c.App)
	added, err := sess.ctrl.AddBatchInvocation(args[0], sess.view.Selection())
	if err != nil {
		return err
	}
	sess.view.ClearSelection()
	fmt.Fprintf(c.App.Writer, "%d invocations added\n", len(added))
	return nil
}

func getInvocation(c *cli.Context, sess *session) (*crafting.Invocation, error) {
	args := c.Args()
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: <index>", ErrMissingParameter)
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return sess.ctrl.Invocation(i)
}

func handleSet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 3 {
		return fmt.Errorf("%w: <index> <param> <value>", ErrMissingParameter)
	}
	sess := getSessionFromApp(c.App)
	inv, err := getInvocation(c, sess)
	if err != nil {
		return err
	}
	value := args[2]
	if _, ok := inv.Method().AssetParam(args[1]); ok && value == unsetValue {
		value = string(schema.Unset)
	}
	return cmdargs.SetParam(sess.ctrl, inv, args[1], value)
}

func handleOptions(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return fmt.Errorf("%w: <index> <param>", ErrMissingParameter)
	}
	sess := getSessionFromApp(c.App)
	inv, err := getInvocation(c, sess)
	if err != nil {
		return err
	}
	if _, ok := inv.Method().AssetParam(args[1]); !ok {
		return fmt.Errorf("%w: %s", crafting.ErrUnknownParam, args[1])
	}
	for _, id := range inv.Eligible(args[1]) {
		mark := " "
		if sess.ctrl.IsSelected(inv, args[1], id) {
			mark = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %s\n", mark, id)
	}
	return nil
}

func handleRemove(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <index>", ErrMissingParameter)
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return getSessionFromApp(c.App).ctrl.RemoveInvocation(i)
}

func handleShow(c *cli.Context) error {
	ctrl := getSessionFromApp(c.App).ctrl
	w := c.App.Writer
	for i, inv := range ctrl.Invocations() {
		state := "ready"
		switch {
		case !inv.HasParams():
			state = "incomplete"
		case inv.HasErrors():
			state = "invalid"
		}
		fmt.Fprintf(w, "#%d %s (%s)\n", i, inv.Method().Name, state)
		for _, name := range inv.Method().AssetParamNames() {
			id, _ := inv.AssetParam(name)
			if id == schema.Unset {
				id = unsetValue
			}
			fmt.Fprintf(w, "    %s = %s\n", name, id)
		}
		consts := inv.ConstParams()
		names := make([]string, 0, len(consts))
		for name := range consts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "    %s = %q\n", name, consts[name].Value)
		}
	}
	fmt.Fprintf(w, "complete: %t\n", ctrl.IsComplete())
	return nil
}

func handleReset(c *cli.Context) error {
	getSessionFromApp(c.App).ctrl.Reset()
	return nil
}

func handleCompose(c *cli.Context) error {
	tx, err := getSessionFromApp(c.App).ctrl.MakeTransaction()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}

func handleSubmit(c *cli.Context) error {
	tx, err := getSessionFromApp(c.App).submit()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s pending, %d assets utilized\n", tx.UUID, len(tx.AssetsUtilized))
	return nil
}

func handleSend(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <recipient>", ErrMissingParameter)
	}
	tx, err := getSessionFromApp(c.App).send(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s pending, %d assets sent to %s\n", tx.UUID, len(tx.AssetsUtilized), args[0])
	return nil
}

func handleAccount(c *cli.Context) error {
	sess := getSessionFromApp(c.App)
	if err := sess.refreshAccount(false); err != nil {
		return err
	}
	return printAccount(c.App.Writer, sess)
}

func handleRefresh(c *cli.Context) error {
	sess := getSessionFromApp(c.App)
	if err := sess.refreshAccount(true); err != nil {
		return err
	}
	return printAccount(c.App.Writer, sess)
}

func printAccount(w io.Writer, sess *session) error {
	st := sess.account
	maker := st.Maker()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Account:\t%s\n", st.AccountID())
	fmt.Fprintf(tw, "Balance:\t%d\n", st.Balance())
	fmt.Fprintf(tw, "Transaction Nonce:\t%d\n", st.Nonce())
	fmt.Fprintf(tw, "Inventory Nonce (Node):\t%d\n", st.NodeInventoryNonce())
	fmt.Fprintf(tw, "Pending:\t%d\n", len(st.PendingTransactions()))
	fmt.Fprintf(tw, "Maker:\t%s/%s nonce %d\n", maker.AccountName, maker.KeyName, maker.Nonce)
	return tw.Flush()
}

func handleTag(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return fmt.Errorf("%w: <tag> <asset>...", ErrMissingParameter)
	}
	getSessionFromApp(c.App).tags.TagAssets(args[0], toAssetIDs(args[1:])...)
	return nil
}

func handleUntag(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return fmt.Errorf("%w: <tag> <asset>...", ErrMissingParameter)
	}
	getSessionFromApp(c.App).tags.UntagAssets(args[0], toAssetIDs(args[1:])...)
	return nil
}

func handleHide(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <tag>", ErrMissingParameter)
	}
	getSessionFromApp(c.App).tags.SetTagVisible(args[0], false)
	return nil
}

func handleUnhide(c *cli.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return fmt.Errorf("%w: <tag>", ErrMissingParameter)
	}
	getSessionFromApp(c.App).tags.SetTagVisible(args[0], true)
	return nil
}

func toAssetIDs(args []string) []schema.AssetID {
	res := make([]schema.AssetID, len(args))
	for i := range args {
		res[i] = schema.AssetID(args[i])
	}
	return res
}

func writeErr(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)
}

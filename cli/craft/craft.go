package craft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cryptogogue/volwal/cli/cmdargs"
	"github.com/cryptogogue/volwal/cli/options"
	"github.com/cryptogogue/volwal/pkg/binding"
	"github.com/cryptogogue/volwal/pkg/crafting"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/urfave/cli"
)

// NewCommands returns 'craft' command.
func NewCommands() []cli.Command {
	flags := append([]cli.Flag{}, sessionFlags...)
	flags = append(flags, options.Common...)
	composeFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "batch",
			Usage: "add one invocation of the given single-asset method per selected asset",
		},
		cli.StringSliceFlag{
			Name:  "select",
			Usage: "asset selected for --batch (may be repeated)",
		},
		cli.BoolFlag{
			Name:  "body",
			Usage: "print transaction body only",
		},
	}, flags...)
	return []cli.Command{{
		Name:  "craft",
		Usage: "compose crafting transactions",
		Subcommands: []cli.Command{
			{
				Name:      "methods",
				Usage:     "list schema methods and their availability for the inventory",
				UsageText: "methods --schema <file> --inventory <file>",
				Action:    listMethods,
				Flags:     flags,
			},
			{
				Name:      "compose",
				Usage:     "compose a crafting transaction",
				UsageText: "compose --schema <file> --inventory <file> [--batch <method> --select <asset>...] [invocation...]",
				Description: `Composes a RUN_SCRIPT transaction out of the given invocations and prints
   its JSON. Batch invocations are added first.

` + cmdargs.InvocationsParsingDoc,
				Action: compose,
				Flags:  composeFlags,
			},
			{
				Name:      "shell",
				Usage:     "start an interactive crafting session",
				UsageText: "shell --schema <file> --inventory <file>",
				Action:    startShell,
				Flags:     flags,
			},
		},
	}}
}

func listMethods(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	sess, exitErr := getSessionFromContext(ctx)
	if exitErr != nil {
		return exitErr
	}
	defer sess.Close()

	return printMethods(ctx.App.Writer, sess.ctrl.Binding())
}

func printMethods(w io.Writer, b *binding.Binding) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range b.Schema().Methods() {
		mark := " "
		if mb, ok := b.MethodBinding(m.Name); ok && mb.Valid() {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %s\tweight %d\tmaturity %d\t%s\n", mark, m.Name, m.Weight, m.Maturity, formatParams(m))
	}
	return tw.Flush()
}

func formatParams(m *schema.Method) string {
	var parts []string
	for _, p := range m.AssetArgs {
		q := p.Type
		if len(q) == 0 {
			q = "any"
		}
		if len(p.Tags) > 0 {
			q += "#" + strings.Join(p.Tags, "#")
		}
		parts = append(parts, p.Name+":"+q)
	}
	for _, p := range m.ConstArgs {
		parts = append(parts, p.Name+":const")
	}
	return strings.Join(parts, " ")
}

func compose(ctx *cli.Context) error {
	invs, exitErr := cmdargs.GetInvocationsFromContext(ctx)
	if exitErr != nil {
		return exitErr
	}
	batch := ctx.String("batch")
	selection := ctx.StringSlice("select")
	if len(selection) != 0 && len(batch) == 0 {
		return cli.NewExitError(errors.New("--select requires --batch"), 1)
	}
	if len(batch) == 0 && len(invs) == 0 {
		return cli.NewExitError(errors.New("no invocations given"), 1)
	}

	sess, sessErr := getSessionFromContext(ctx)
	if sessErr != nil {
		return sessErr
	}
	defer sess.Close()

	if len(batch) != 0 {
		if _, err := sess.ctrl.AddBatchInvocation(batch, toAssetIDs(selection)); err != nil {
			return cli.NewExitError(fmt.Errorf("batch %s: %w", batch, err), 1)
		}
	}
	for i, inv := range invs {
		if _, err := inv.Apply(sess.ctrl); err != nil {
			return cli.NewExitError(fmt.Errorf("invocation #%d: %w", i, err), 1)
		}
	}

	tx, err := sess.ctrl.MakeTransaction()
	if err != nil {
		return cli.NewExitError(fmt.Errorf("%w:\n%s", err, describeProblems(sess.ctrl)), 1)
	}
	var v any = tx
	if ctx.Bool("body") {
		v = tx.Body
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}

// describeProblems lists invocations that prevent the form from being
// complete.
func describeProblems(c *crafting.Controller) string {
	var b strings.Builder
	for i, inv := range c.Invocations() {
		switch {
		case !inv.HasParams():
			var missing []string
			for _, name := range inv.Method().AssetParamNames() {
				if id, _ := inv.AssetParam(name); id == schema.Unset {
					missing = append(missing, name)
				}
			}
			fmt.Fprintf(&b, "  #%d %s: missing %s\n", i, inv.Method().Name, strings.Join(missing, ", "))
		case inv.HasErrors():
			fmt.Fprintf(&b, "  #%d %s: invalid parameters\n", i, inv.Method().Name)
		}
	}
	if len(c.Invocations()) == 0 {
		b.WriteString("  no invocations\n")
	}
	return b.String()
}

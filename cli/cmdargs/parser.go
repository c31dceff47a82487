package cmdargs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cryptogogue/volwal/pkg/crafting"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/urfave/cli"
)

const (
	// MethodSeparator separates the method name from its parameters.
	MethodSeparator = ":"
	// ParamsSeparator separates parameters of an invocation.
	ParamsSeparator = ","
	// ValueSeparator separates parameter name from its value.
	ValueSeparator = "="
)

// InvocationsParsingDoc is a documentation for invocations parsing.
const InvocationsParsingDoc = `   Invocations are given as method[:param=value[,param=value...]] where
   'method' is a method name from the schema and each 'param' is either an
   asset or a constant parameter of this method. Asset parameters take asset
   identifiers as values, constant parameters take any string.

   Backslash character is used as an escape character and allows to use ',',
   '=' and ':' in values. To get a literal backslash use the '\\' sequence.

   Parameters may be omitted, the transaction is composed only when all the
   asset parameters of all invocations are set.

   Examples:
    * 'craft' is an invocation of 'craft' with no parameters set
    * 'smelt:ore=a1,fuel=c1' sets two asset parameters
    * 'sign:text=a\,b' sets a constant parameter to 'a,b'`

// Invocation is a parsed invocation argument.
type Invocation struct {
	Method string
	Params []Param
}

// Param is a single parameter assignment, in the order given.
type Param struct {
	Name  string
	Value string
}

// GetInvocationsFromContext returns invocations parsed from context args.
func GetInvocationsFromContext(ctx *cli.Context) ([]Invocation, *cli.ExitError) {
	res, err := ParseInvocations(ctx.Args())
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return res, nil
}

// ParseInvocations parses all the given invocation arguments.
func ParseInvocations(args []string) ([]Invocation, error) {
	res := make([]Invocation, 0, len(args))
	for i, s := range args {
		inv, err := ParseInvocation(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse invocation #%d: %w", i, err)
		}
		res = append(res, inv)
	}
	return res, nil
}

// ParseInvocation parses a single invocation argument.
func ParseInvocation(s string) (Invocation, error) {
	var (
		parts = splitEscaped(s, MethodSeparator, 2)
		err   error
	)
	res := Invocation{Method: unescape(parts[0])}
	if len(res.Method) == 0 {
		return Invocation{}, errors.New("empty method name")
	}
	if len(parts) == 1 || len(parts[1]) == 0 {
		return res, nil
	}
	res.Params, err = ParseParams(splitEscaped(parts[1], ParamsSeparator, -1))
	if err != nil {
		return Invocation{}, err
	}
	return res, nil
}

// ParseParams parses param=value assignments, each name may be given once.
func ParseParams(args []string) ([]Param, error) {
	var (
		res  = make([]Param, 0, len(args))
		seen = make(map[string]bool)
	)
	for _, s := range args {
		p, err := ParseParam(s)
		if err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("parameter '%s' is given twice", p.Name)
		}
		seen[p.Name] = true
		res = append(res, p)
	}
	return res, nil
}

// ParseParam parses a single param=value assignment, ValueSeparator can be
// escaped in both parts.
func ParseParam(s string) (Param, error) {
	kv := splitEscaped(s, ValueSeparator, 2)
	if len(kv) != 2 || len(kv[0]) == 0 {
		return Param{}, fmt.Errorf("bad parameter '%s': expected param=value", s)
	}
	return Param{Name: unescape(kv[0]), Value: unescape(kv[1])}, nil
}

// splitEscaped splits s by sep not preceded by a backslash. Escape
// sequences are kept in the result.
func splitEscaped(s, sep string, n int) []string {
	var (
		res     []string
		start   int
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case strings.HasPrefix(s[i:], sep) && (n < 0 || len(res) < n-1):
			res = append(res, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(res, s[start:])
}

func unescape(s string) string {
	var (
		b       strings.Builder
		escaped bool
	)
	for _, c := range s {
		if !escaped && c == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(c)
	}
	return b.String()
}

// Apply adds the invocation to the controller and sets its parameters.
// Parameters are looked up among the method's asset parameters first. If
// any parameter can't be set the invocation is removed again releasing the
// assets it has claimed.
func (inv Invocation) Apply(c *crafting.Controller) (*crafting.Invocation, error) {
	res, err := c.AddInvocation(inv.Method)
	if err != nil {
		return nil, err
	}
	index := len(c.Invocations()) - 1
	for _, p := range inv.Params {
		err = SetParam(c, res, p.Name, p.Value)
		if err != nil {
			if rmErr := c.RemoveInvocation(index); rmErr != nil {
				return nil, fmt.Errorf("%w (rollback failed: %v)", err, rmErr)
			}
			return nil, err
		}
	}
	return res, nil
}

// SetParam sets either an asset or a constant parameter of the invocation.
func SetParam(c *crafting.Controller, inv *crafting.Invocation, name, value string) error {
	if _, ok := inv.Method().AssetParam(name); ok {
		return c.SetAssetParam(inv, name, schema.AssetID(value))
	}
	return c.SetConstParam(inv, name, value)
}

// EnsureNone returns an error if there are any positional arguments present.
// It can be used to check for them in commands that don't accept arguments.
func EnsureNone(ctx *cli.Context) *cli.ExitError {
	if ctx.Args().Present() {
		return cli.NewExitError("additional arguments given while this command expects none", 1)
	}
	return nil
}

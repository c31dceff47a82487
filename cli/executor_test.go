package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cryptogogue/volwal/cli/app"
	"github.com/cryptogogue/volwal/cli/input"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

const (
	schemaFile    = "testdata/schema.yml"
	inventoryFile = "testdata/inventory.yml"
)

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// ConfigFile is a wallet configuration with a persistent store.
	ConfigFile string
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
	// In contains command input.
	In *bytes.Buffer
}

func newExecutor(t *testing.T) *executor {
	e := &executor{
		CLI: app.New(),
		Out: bytes.NewBuffer(nil),
		Err: bytes.NewBuffer(nil),
		In:  bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err

	dir := t.TempDir()
	e.ConfigFile = filepath.Join(dir, "volwal.yml")
	cfg := fmt.Sprintf(`ApplicationConfiguration:
  LogLevel: error
  LogPath: %q
  DBConfiguration:
    Type: boltdb
    BoltDBOptions:
      FilePath: %q
  Wallet:
    ScryptN: 1024
    ScryptR: 1
    ScryptP: 1
    BcryptCost: 4
`, filepath.Join(dir, "volwal.log"), filepath.Join(dir, "volwal.bolt"))
	require.NoError(t, os.WriteFile(e.ConfigFile, []byte(cfg), 0o600))
	t.Cleanup(func() {
		input.Terminal = nil
	})
	return e
}

func (e *executor) getNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func (e *executor) checkNextLine(t *testing.T, expected string) {
	line := e.getNextLine(t)
	e.checkLine(t, line, expected)
}

func (e *executor) checkLine(t *testing.T, line, expected string) {
	require.Regexp(t, expected, line)
}

func (e *executor) checkEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

// RunWallet runs a wallet command with the executor's configuration.
func (e *executor) RunWallet(t *testing.T, args ...string) {
	e.Run(t, append(args, "--config-file", e.ConfigFile)...)
}

// RunWalletWithError runs a wallet command with the executor's
// configuration and checks that it fails.
func (e *executor) RunWalletWithError(t *testing.T, args ...string) {
	e.RunWithError(t, append(args, "--config-file", e.ConfigFile)...)
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	input.Terminal = term.NewTerminal(input.ReadWriter{
		Reader: e.In,
		Writer: io.Discard,
	}, "")
	err := e.CLI.Run(args)
	input.Terminal = nil
	e.In.Reset()
	return err
}

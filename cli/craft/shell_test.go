package craft

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/cryptogogue/volwal/pkg/account"
	"github.com/cryptogogue/volwal/pkg/config"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/cryptogogue/volwal/pkg/storage"
	"github.com/cryptogogue/volwal/pkg/transaction"
	"github.com/cryptogogue/volwal/pkg/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

// buffer is a thread-safe bytes.Buffer used as readline input and output.
type buffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *buffer) Read(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.buf.Read(p)
}

func (b *buffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.buf.Write(p)
}

func (b *buffer) Close() error { return nil }

func (b *buffer) String() string {
	b.Lock()
	defer b.Unlock()
	return b.buf.String()
}

type shellExecutor struct {
	sess  *session
	shell *Shell
	in    *buffer
	out   *buffer
	exit  *atomic.Bool
}

func newTestSession(t *testing.T) *session {
	return newTestSessionWith(t, staticMaker{AccountName: "alice", KeyName: "master", Nonce: 1}, new(pendingList))
}

func newTestSessionWith(t *testing.T, maker transaction.MakerSource, pending Pending) *session {
	s, err := schema.LoadFile("../testdata/schema.yml")
	require.NoError(t, err)
	pool, err := schema.LoadAssetsFile("../testdata/inventory.yml")
	require.NoError(t, err)
	sess := newSession(s, pool, maker, pending, zaptest.NewLogger(t))
	t.Cleanup(sess.Close)
	return sess
}

func newShellExecutor(t *testing.T) *shellExecutor {
	return newShellExecutorWith(t, newTestSession(t))
}

func newShellExecutorWith(t *testing.T, sess *session) *shellExecutor {
	e := &shellExecutor{
		sess: sess,
		in:   new(buffer),
		out:  new(buffer),
		exit: atomic.NewBool(false),
	}
	var err error
	e.shell, err = newShell(e.sess, func(int) { e.exit.Store(true) }, &readline.Config{
		Prompt: "",
		Stdin:  e.in,
		Stderr: e.out,
		Stdout: e.out,
		FuncIsTerminal: func() bool {
			return false
		},
	})
	require.NoError(t, err)
	return e
}

func (e *shellExecutor) runProg(t *testing.T, commands ...string) string {
	_, _ = e.in.Write([]byte(strings.Join(commands, "\n") + "\nexit\n"))
	done := make(chan struct{})
	go func() {
		require.NoError(t, e.shell.Run())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(4 * time.Second):
		require.Fail(t, "program didn't finish in time")
	}
	require.True(t, e.exit.Load())
	return e.out.String()
}

func TestShellCompose(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		"methods",
		"add smelt ore=a1",
		"show",
		"set 0 fuel c1",
		"add craft",
		"options 1 ore",
		"set 1 ore a2",
		"show",
	)
	require.Contains(t, out, "* smelt")
	require.Contains(t, out, "#0 smelt (incomplete)")
	require.Contains(t, out, "#1 craft (ready)")
	require.Contains(t, out, "complete: true")
	require.NotContains(t, out, "Error:")
	require.Contains(t, out, "Bye!")

	ctrl := e.sess.ctrl
	require.Len(t, ctrl.Invocations(), 2)
	require.True(t, ctrl.IsUtilized("a1"))
	require.True(t, ctrl.IsUtilized("a2"))
	require.True(t, ctrl.IsUtilized("c1"))
	require.True(t, ctrl.IsComplete())
}

func TestShellBatchAndSubmit(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		"select a1 a3",
		"batch craft",
		"submit",
		"assets",
	)
	require.Contains(t, out, "2 selected")
	require.Contains(t, out, "2 invocations added")
	require.Contains(t, out, "pending, 2 assets utilized")
	require.NotContains(t, out, "Error:")

	require.Empty(t, e.sess.ctrl.Invocations())
	require.False(t, e.sess.view.HasSelection())
	pool := e.sess.inv.Assets()
	require.False(t, pool.Has("a1"))
	require.False(t, pool.Has("a3"))
	require.True(t, pool.Has("a2"))
	require.Equal(t, []string{"a1", "a3"}, e.sess.pending.AssetsUtilized())

	// Remaining ore still craftable after the inventory change.
	mb, ok := e.sess.ctrl.Binding().MethodBinding("craft")
	require.True(t, ok)
	require.Equal(t, []schema.AssetID{"a2"}, mb.Eligible("ore"))
}

func TestShellTags(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		"tag junk a2 a3",
		"hide junk",
		"assets",
	)
	require.Contains(t, out, "a1")
	require.Contains(t, out, "c1")
	require.False(t, e.sess.view.IsVisible("a2"))
	require.False(t, e.sess.view.IsVisible("a3"))
	require.True(t, e.sess.view.IsVisible("a1"))
}

func TestShellErrors(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		"add",
		"add missing",
		"add craft ore",
		"add craft ore=a1",
		"add craft ore=a1",
		"set x ore a1",
		"set 5 ore a1",
		"set 0",
		"remove 3",
		"select zz",
		"batch smelt",
		"compose",
		"options 0 fuel",
		`add "unterminated`,
		"unknown-command",
	)
	require.Contains(t, out, "missing argument: <method>")
	require.Contains(t, out, "method not found")
	require.Contains(t, out, "can't parse argument")
	require.Contains(t, out, "asset is utilized by another invocation")
	require.Contains(t, out, "invocation index out of range")
	require.Contains(t, out, "asset not found")
	require.Contains(t, out, "exactly one asset parameter")
	require.Contains(t, out, "unknown parameter")
	require.Contains(t, out, "failed to parse arguments")

	// The failed second craft is rolled back.
	require.Len(t, e.sess.ctrl.Invocations(), 1)
}

func TestShellFailedAdd(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		"add smelt ore=a1 fuel=bad",
		"show",
	)
	require.Contains(t, out, "asset not found: bad")
	require.NotContains(t, out, "#0 smelt")
	require.Contains(t, out, "complete: false")
	require.Empty(t, e.sess.ctrl.Invocations())
	require.False(t, e.sess.ctrl.IsUtilized("a1"))
}

func TestShellAddEscaped(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		`add engrave 'text=x\=y'`,
		`add engrave 'te\=xt=1'`,
	)
	require.Contains(t, out, "unknown parameter")
	require.Len(t, e.sess.ctrl.Invocations(), 1)
	cp, ok := e.sess.ctrl.Invocations()[0].ConstParam("text")
	require.True(t, ok)
	require.Equal(t, "x=y", cp.Value)
}

func TestShellSend(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t,
		"send bob",
		"add craft ore=a2",
		"select a2",
		"send bob",
		"select a2 a1 c1",
		"send",
		"send bob",
	)
	require.Contains(t, out, "transaction form is incomplete")
	require.Contains(t, out, "asset is utilized by another invocation")
	require.Contains(t, out, "missing argument: <recipient>")
	require.Contains(t, out, "pending, 2 assets sent to bob")

	pool := e.sess.inv.Assets()
	require.False(t, pool.Has("a1"))
	require.False(t, pool.Has("c1"))
	require.True(t, pool.Has("a2"))
	require.False(t, e.sess.view.HasSelection())
	require.Equal(t, []string{"a1", "c1"}, e.sess.pending.AssetsUtilized())

	txs := e.sess.pending.(*pendingList).txs
	require.Len(t, txs, 1)
	require.Equal(t, transaction.SendAssetsType, txs[0].Body.Type)
	require.Equal(t, "bob", txs[0].Body.AccountName)
	require.Equal(t, []string{"a1", "c1"}, txs[0].Body.AssetIdentifiers)

	// The crafting form is untouched.
	require.Len(t, e.sess.ctrl.Invocations(), 1)
	require.True(t, e.sess.ctrl.IsComplete())
}

func TestShellAccountRefresh(t *testing.T) {
	requests := atomic.NewUint32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		_, _ = w.Write([]byte(`{"account":{"balance":1000,"nonce":4,"inventoryNonce":9}}`))
	}))
	t.Cleanup(srv.Close)

	log := zaptest.NewLogger(t)
	w, err := wallet.New(storage.NewPersister(storage.NewMemoryStore()), config.Wallet{
		ScryptN:    1024,
		ScryptR:    1,
		ScryptP:    1,
		BcryptCost: bcrypt.MinCost,
	}, log)
	require.NoError(t, err)
	require.NoError(t, w.SetPassword("one", true))
	require.NoError(t, w.AffirmNetwork("main", "volition", srv.URL))
	require.NoError(t, w.ImportAccount("main", "alice", "master", "one",
		wallet.Secrets{PhraseOrKey: "phrase", PrivateKeyHex: "c0ffee", PublicKeyHex: "beef"}))
	st, err := account.NewState(w, "main", "alice")
	require.NoError(t, err)

	sess := newTestSessionWith(t, st, st)
	client := account.NewClient(account.Options{}, log)
	sess.attachAccount(st, client)

	e := newShellExecutorWith(t, sess)
	out := e.runProg(t,
		"account",
		"account",
		"add craft ore=a1",
		"submit",
		"account",
		"refresh",
	)
	require.NotContains(t, out, "Error:")
	require.Regexp(t, `Balance:\s+1000`, out)
	require.Regexp(t, `Maker:\s+alice/master nonce 4`, out)
	require.Regexp(t, `Pending:\s+1`, out)
	require.Regexp(t, `Maker:\s+alice/master nonce 5`, out)

	// Cached until refresh.
	require.EqualValues(t, 2, client.Requests())
	require.EqualValues(t, 2, requests.Load())
	require.EqualValues(t, 5, st.Maker().Nonce)
}

func TestShellAccountWithoutWallet(t *testing.T) {
	e := newShellExecutor(t)
	out := e.runProg(t, "account", "refresh")
	require.Contains(t, out, "session has no wallet account")
}

func TestShellUnsetAndReset(t *testing.T) {
	e := newShellExecutor(t)
	e.runProg(t,
		"add smelt ore=a1 fuel=c1",
		"set 0 ore -",
		"add craft ore=a1",
		"add engrave",
		"set 2 text hello",
		"reset",
	)
	require.Empty(t, e.sess.ctrl.Invocations())
	require.Empty(t, e.sess.ctrl.AssetsUtilized())
}

func TestPendingList(t *testing.T) {
	p := new(pendingList)
	require.Empty(t, p.AssetsUtilized())
	tx := transaction.New(&transaction.Body{Type: transaction.RunScriptType})
	tx.SetAssetsUtilized([]string{"b", "a"})
	p.PushTransaction(tx)
	require.Equal(t, []string{"a", "b"}, p.AssetsUtilized())
}

func TestSessionServices(t *testing.T) {
	sess := newTestSession(t)
	sess.cfg.Prometheus = config.BasicService{Enabled: true, Addresses: []string{"127.0.0.1:0"}}
	require.NoError(t, sess.startServices())
	require.Len(t, sess.closers, 2)

	sess = newTestSession(t)
	sess.cfg.Pprof = config.BasicService{Enabled: true, Addresses: []string{"256.0.0.1:1"}}
	require.Error(t, sess.startServices())
}

package craft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptogogue/volwal/cli/options"
	"github.com/cryptogogue/volwal/pkg/account"
	"github.com/cryptogogue/volwal/pkg/config"
	"github.com/cryptogogue/volwal/pkg/crafting"
	"github.com/cryptogogue/volwal/pkg/inventory"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/cryptogogue/volwal/pkg/services/metrics"
	"github.com/cryptogogue/volwal/pkg/transaction"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	errNoWalletAccount = errors.New("session has no wallet account, use (--network) and (--account) flags")
	errNoSchema        = errors.New("schema file is mandatory and should be passed using (--schema) flag")
	errNoInventory     = errors.New("inventory file is mandatory and should be passed using (--inventory) flag")
)

// Pending collects transactions made in a session.
type Pending interface {
	PushTransaction(tx *transaction.Transaction)
	AssetsUtilized() []string
}

// pendingList is used when no wallet account backs the session.
type pendingList struct {
	txs []*transaction.Transaction
}

func (p *pendingList) PushTransaction(tx *transaction.Transaction) {
	p.txs = append(p.txs, tx)
}

func (p *pendingList) AssetsUtilized() []string {
	var res []string
	for _, tx := range p.txs {
		res = append(res, tx.AssetsUtilized...)
	}
	return res
}

type staticMaker transaction.Maker

func (m staticMaker) Maker() transaction.Maker {
	return transaction.Maker(m)
}

// session holds the inventory and the crafting form of a single command
// run or shell.
type session struct {
	log     *zap.Logger
	inv     *inventory.Service
	tags    *inventory.TagController
	view    *inventory.ViewController
	ctrl    *crafting.Controller
	pending Pending
	maker   transaction.MakerSource
	cfg     config.ApplicationConfiguration
	closers []func()

	// account and node are set for sessions backed by a wallet account.
	account *account.State
	node    *account.Client
	timeout time.Duration
}

func newSession(s *schema.Schema, pool *schema.AssetPool, maker transaction.MakerSource, pending Pending, log *zap.Logger) *session {
	inv := inventory.New(s, pool, log)
	sess := &session{
		log:     log,
		inv:     inv,
		tags:    inventory.NewTagController(),
		view:    inventory.NewViewController(inv),
		ctrl:    crafting.NewController(inv, maker, log),
		pending: pending,
		maker:   maker,
		timeout: options.DefaultTimeout,
	}
	sess.view.SetFilterFunc(sess.isVisible)
	return sess
}

func (s *session) isVisible(id schema.AssetID) bool {
	if !s.tags.IsAssetVisible(id) {
		return false
	}
	for _, u := range s.pending.AssetsUtilized() {
		if schema.AssetID(u) == id {
			return false
		}
	}
	return true
}

func (s *session) Close() {
	s.ctrl.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// startServices starts monitoring services enabled in the configuration,
// they are stopped on Close.
func (s *session) startServices() error {
	for _, srv := range []*metrics.Service{
		metrics.NewPrometheusService(s.cfg.Prometheus, s.log),
		metrics.NewPprofService(s.cfg.Pprof, s.log),
	} {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start %s service: %w", srv.Name(), err)
		}
		s.closers = append(s.closers, srv.ShutDown)
	}
	return nil
}

// attachAccount backs the session with a wallet account queried through
// the node client.
func (s *session) attachAccount(st *account.State, node *account.Client) {
	s.account = st
	s.node = node
	s.closers = append(s.closers, func() {
		s.log.Debug("node client closed", zap.Uint64("requests", node.Requests()))
	})
}

// refreshAccount fetches maker account information from the node, cached
// information is dropped first if force is set.
func (s *session) refreshAccount(force bool) error {
	if s.account == nil {
		return errNoWalletAccount
	}
	if force {
		s.node.Invalidate(s.account.Network().NodeURL, s.account.AccountID())
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.account.Refresh(ctx, s.node); err != nil {
		return fmt.Errorf("failed to get account info: %w", err)
	}
	return nil
}

// send moves selected assets to the recipient with a SEND_ASSETS
// transaction. Assets used by the crafting form can't be sent.
func (s *session) send(recipient string) (*transaction.Transaction, error) {
	sel := s.view.Selection()
	ids := make([]string, 0, len(sel))
	for _, id := range sel {
		if s.ctrl.IsUtilized(id) {
			return nil, fmt.Errorf("%w: %s", crafting.ErrAssetUtilized, id)
		}
		ids = append(ids, string(id))
	}
	form := transaction.NewSendAssetsForm(s.maker, ids, s.log)
	form.SetRecipient(recipient)
	tx, err := form.MakeTransaction()
	if err != nil {
		return nil, err
	}
	s.pending.PushTransaction(tx)
	s.view.ClearSelection()
	s.inv.RemoveAssets(sel...)
	s.log.Info("assets sent",
		zap.String("uuid", tx.UUID),
		zap.String("recipient", recipient),
		zap.Int("assets", len(ids)))
	return tx, nil
}

// submit makes a transaction out of the form, moves it to pending and
// drops utilized assets from the inventory.
func (s *session) submit() (*transaction.Transaction, error) {
	tx, err := s.ctrl.MakeTransaction()
	if err != nil {
		return nil, err
	}
	s.pending.PushTransaction(tx)
	s.ctrl.Reset()
	ids := make([]schema.AssetID, 0, len(tx.AssetsUtilized))
	for _, id := range tx.AssetsUtilized {
		ids = append(ids, schema.AssetID(id))
	}
	s.inv.RemoveAssets(ids...)
	s.log.Info("transaction submitted",
		zap.String("uuid", tx.UUID),
		zap.Int("invocations", len(tx.Body.Invocations)))
	return tx, nil
}

// sessionFlags are flags shared by the commands building a session.
var sessionFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "schema",
		Usage: "path to the YAML method schema",
	},
	cli.StringFlag{
		Name:  "inventory, i",
		Usage: "path to the YAML inventory",
	},
	cli.StringFlag{
		Name:  "network, n",
		Usage: "wallet network to take the maker account from",
	},
	cli.StringFlag{
		Name:  "account, a",
		Usage: "maker account name",
	},
	cli.StringFlag{
		Name:  "key, k",
		Usage: "maker key name",
	},
	cli.Uint64Flag{
		Name:  "nonce",
		Usage: "maker nonce (used when no wallet network is given)",
	},
	cli.BoolFlag{
		Name:  "refresh",
		Usage: "query the node for the current account nonce (requires --network)",
	},
	options.Timeout,
}

func getSessionFromContext(ctx *cli.Context) (*session, cli.ExitCoder) {
	schemaPath := ctx.String("schema")
	if len(schemaPath) == 0 {
		return nil, cli.NewExitError(errNoSchema, 1)
	}
	invPath := ctx.String("inventory")
	if len(invPath) == 0 {
		return nil, cli.NewExitError(errNoInventory, 1)
	}
	s, err := schema.LoadFile(schemaPath)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	pool, err := schema.LoadAssetsFile(invPath)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}

	if len(ctx.String("network")) == 0 {
		cfg, err := options.GetConfigFromContext(ctx)
		if err != nil {
			return nil, cli.NewExitError(err, 1)
		}
		log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
		if err != nil {
			return nil, cli.NewExitError(err, 1)
		}
		maker := staticMaker{
			AccountName: ctx.String("account"),
			KeyName:     ctx.String("key"),
			Nonce:       ctx.Uint64("nonce"),
		}
		sess := newSession(s, pool, maker, new(pendingList), log)
		sess.cfg = cfg.ApplicationConfiguration
		sess.closers = append(sess.closers, func() { _ = log.Sync() })
		return sess, nil
	}

	network, acc, err := options.GetAccountFromContext(ctx)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	env, exitErr := options.GetEnv(ctx)
	if exitErr != nil {
		return nil, exitErr
	}
	st, err := account.NewState(env.Wallet, network, acc)
	if err != nil {
		env.Close()
		return nil, cli.NewExitError(err, 1)
	}
	if key := ctx.String("key"); len(key) != 0 {
		if err := st.SetKeyName(key); err != nil {
			env.Close()
			return nil, cli.NewExitError(err, 1)
		}
	}
	sess := newSession(s, pool, st, st, env.Log)
	sess.cfg = env.Config.ApplicationConfiguration
	sess.closers = append(sess.closers, env.Close)
	if d := ctx.Duration("timeout"); d > 0 {
		sess.timeout = d
	}
	sess.attachAccount(st, env.NodeClient())
	if ctx.Bool("refresh") {
		if err := sess.refreshAccount(false); err != nil {
			sess.Close()
			return nil, cli.NewExitError(err, 1)
		}
	}
	return sess, nil
}

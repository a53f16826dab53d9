package main

import (
	"context"
	"fmt"
	"io"
	"os"

	canvass "go.canvass.io/canvass"
	"go.canvass.io/canvass/ballot"
	"go.canvass.io/canvass/chain/mem"
	"go.canvass.io/canvass/cli"
	"go.canvass.io/canvass/comments"
	"go.canvass.io/canvass/config"
	"go.canvass.io/canvass/core/store/expiry"
	"go.canvass.io/canvass/core/store/kv"
	"go.canvass.io/canvass/core/txn/tracker"
	"go.canvass.io/canvass/crypto/ed25519"
	"go.canvass.io/canvass/crypto/loader"
	"go.canvass.io/canvass/wallet"
	"golang.org/x/xerrors"
)

// app holds the configuration loaded from the global flags.
type app struct {
	out io.Writer
	cfg config.Config
}

func newApp(out io.Writer) *app {
	return &app{out: out, cfg: config.Default()}
}

func (a *app) before(flags cli.Flags) error {
	cfg, err := config.Load(flags.Path("config"), config.WithDotEnv(flags.Path("env")))
	if err != nil {
		return xerrors.Errorf("couldn't load config: %v", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}

	canvass.Logger = canvass.Logger.Level(level)

	a.cfg = cfg

	return nil
}

// env is the set of components of a session of the client.
type env struct {
	db       kv.DB
	store    *expiry.Store
	chain    *mem.Chain
	wallet   wallet.Local
	tracker  *tracker.Tracker
	comments comments.Client
	manager  *ballot.Manager
}

// open creates the components and connects the manager to the wallet.
func (a *app) open(ctx context.Context) (*env, error) {
	err := os.MkdirAll(a.cfg.DataDir, 0700)
	if err != nil {
		return nil, xerrors.Errorf("couldn't create data folder: %v", err)
	}

	db, err := kv.New(a.cfg.DBPath())
	if err != nil {
		return nil, xerrors.Errorf("couldn't open database: %v", err)
	}

	e := &env{db: db}

	err = e.setup(ctx, a.cfg)
	if err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

func (e *env) setup(ctx context.Context, cfg config.Config) error {
	key, err := loader.NewFileLoader(cfg.KeyPath()).LoadOrCreate(ed25519.Generator{})
	if err != nil {
		return xerrors.Errorf("couldn't load key: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(key)
	if err != nil {
		return xerrors.Errorf("couldn't read key: %v", err)
	}

	opts := []mem.Option{mem.WithNetwork(cfg.Network)}
	if cfg.Automine {
		opts = append(opts, mem.WithAutomine())
	}

	e.chain = mem.NewChain(opts...)

	e.wallet, err = wallet.NewLocal(signer, e.chain)
	if err != nil {
		return xerrors.Errorf("couldn't create wallet: %v", err)
	}

	e.store = expiry.NewStore(e.db)
	e.tracker = tracker.NewTracker()
	e.comments = comments.NewClient(cfg.CommentsURL)
	e.manager = ballot.NewManager(e.store, e.comments, e.tracker, ballot.WithTTL(cfg.BallotTTL))

	err = e.manager.Connect(ctx, e.wallet)
	if err != nil {
		return xerrors.Errorf("couldn't connect wallet: %v", err)
	}

	return nil
}

// key returns the storage key of the ballot of the wallet.
func (e *env) key() string {
	return ballot.StorageKey(e.wallet.Network(), e.wallet.Account())
}

// Close stops the tracker first so that the callbacks of the transactions
// are done before the manager and the database are closed.
func (e *env) Close() error {
	if e.tracker != nil {
		e.tracker.Close()
	}

	if e.manager != nil {
		e.manager.Close()
	}

	err := e.db.Close()
	if err != nil {
		return xerrors.Errorf("couldn't close database: %v", err)
	}

	return nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

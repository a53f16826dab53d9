package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.canvass.io/canvass/ballot/types"
	"go.canvass.io/canvass/cli"
	"go.canvass.io/canvass/core"
	"go.canvass.io/canvass/core/txn"
	"golang.org/x/xerrors"
)

const submitTimeout = 2 * time.Minute

// ballotController sets the commands to edit and submit the ballot.
//
// - implements cli.Initializer
type ballotController struct {
	app *app
}

// SetCommands implements cli.Initializer.
func (c ballotController) SetCommands(builder cli.Builder) {
	cmd := builder.SetCommand("ballot")
	cmd.SetDescription("manage the ballot of the wallet")

	voteFlags := []cli.Flag{
		cli.Uint64Flag{
			Name:     "poll",
			Usage:    "identifier of the poll",
			Required: true,
		},
		cli.StringFlag{
			Name:  "option",
			Usage: "choice, or comma-separated ranked choices",
		},
		cli.StringFlag{
			Name:  "comment",
			Usage: "comment on the vote",
		},
	}

	sub := cmd.SetSubCommand("add")
	sub.SetDescription("add a vote to the ballot")
	sub.SetFlags(voteFlags...)
	sub.SetAction(c.withEnv(addAction))

	sub = cmd.SetSubCommand("update")
	sub.SetDescription("update a vote of the ballot")
	sub.SetFlags(voteFlags...)
	sub.SetAction(c.withEnv(updateAction))

	sub = cmd.SetSubCommand("remove")
	sub.SetDescription("remove a vote from the ballot")
	sub.SetFlags(voteFlags[0])
	sub.SetAction(c.withEnv(removeAction))

	sub = cmd.SetSubCommand("list")
	sub.SetDescription("print the ballot")
	sub.SetAction(c.withEnv(c.listAction))

	sub = cmd.SetSubCommand("clear")
	sub.SetDescription("remove every vote from the ballot")
	sub.SetAction(c.withEnv(clearAction))

	sub = cmd.SetSubCommand("sign")
	sub.SetDescription("sign the comments of the ballot")
	sub.SetAction(c.withEnv(c.signAction))

	sub = cmd.SetSubCommand("submit")
	sub.SetDescription("send the votes of the ballot in a transaction")
	sub.SetFlags(cli.DurationFlag{
		Name:  "timeout",
		Usage: "maximum time to wait for the transaction",
		Value: submitTimeout,
	})
	sub.SetAction(c.withEnv(c.submitAction))
}

type envAction func(ctx context.Context, e *env, flags cli.Flags) error

// withEnv opens the environment of the wallet for the action and closes it
// afterwards.
func (c ballotController) withEnv(action envAction) cli.Action {
	return func(flags cli.Flags) error {
		ctx := context.Background()

		e, err := c.app.open(ctx)
		if err != nil {
			return err
		}

		err = action(ctx, e, flags)
		if err != nil {
			e.Close()
			return err
		}

		return e.Close()
	}
}

func patchOf(flags cli.Flags) (types.VotePatch, error) {
	patch := types.VotePatch{}

	if flags.IsSet("option") {
		opt, err := types.ParseOption(flags.String("option"))
		if err != nil {
			return patch, err
		}

		patch.Option = &opt
	}

	if flags.IsSet("comment") {
		comment := flags.String("comment")
		patch.Comment = &comment
	}

	return patch, nil
}

func addAction(ctx context.Context, e *env, flags cli.Flags) error {
	patch, err := patchOf(flags)
	if err != nil {
		return err
	}

	if patch.Option == nil {
		return xerrors.New("an option is required")
	}

	return e.manager.Add(types.PollID(flags.Uint64("poll")), patch)
}

func updateAction(ctx context.Context, e *env, flags cli.Flags) error {
	patch, err := patchOf(flags)
	if err != nil {
		return err
	}

	return e.manager.Update(types.PollID(flags.Uint64("poll")), patch)
}

func removeAction(ctx context.Context, e *env, flags cli.Flags) error {
	return e.manager.Remove(types.PollID(flags.Uint64("poll")))
}

func clearAction(ctx context.Context, e *env, flags cli.Flags) error {
	return e.manager.Clear()
}

func (c ballotController) listAction(ctx context.Context, e *env, flags cli.Flags) error {
	b := e.manager.Ballot()

	c.app.printf("Account: %s\n", e.wallet.Account())

	if len(b) == 0 {
		c.app.printf("The ballot is empty.\n")
		return nil
	}

	for _, id := range b.PollIDs() {
		vote := b[id]

		option := "-"
		if vote.HasOption() {
			option = vote.Option.String()
		}

		c.app.printf("#%d\t%s", id, option)

		if vote.Comment != "" {
			c.app.printf("\t%q", vote.Comment)
		}

		if vote.TransactionHash != "" {
			c.app.printf("\tpending %s", vote.TransactionHash)
		}

		c.app.printf("\n")
	}

	c.app.printf("%d votes, %d comments\n", e.manager.Count(), e.manager.CommentsCount())

	expiry, found, err := e.store.Expiry(e.key())
	if err != nil {
		return xerrors.Errorf("couldn't read expiry: %v", err)
	}

	if found {
		c.app.printf("Expires %s\n", humanize.Time(expiry))
	}

	return nil
}

func (c ballotController) signAction(ctx context.Context, e *env, flags cli.Flags) error {
	if e.manager.CommentsCount() == 0 {
		c.app.printf("No comment to sign.\n")
		return nil
	}

	err := e.manager.SignComments(ctx)
	if err != nil {
		return xerrors.Errorf("couldn't sign comments: %v", err)
	}

	c.app.printf("Signature: %s\n", e.manager.Signature())

	return nil
}

func (c ballotController) submitAction(ctx context.Context, e *env, flags cli.Flags) error {
	// The signature is kept in memory only, so a new one is made for the
	// comments of the ballot.
	if e.manager.CommentsCount() > 0 {
		err := e.manager.SignComments(ctx)
		if err != nil {
			return xerrors.Errorf("couldn't sign comments: %v", err)
		}
	}

	count := 0
	for _, vote := range e.manager.Ballot() {
		if vote.HasOption() {
			count++
		}
	}

	events := make(chan txn.Transaction, 16)

	obs := core.ObserverFunc(func(event interface{}) {
		evt, ok := event.(txn.Event)
		if !ok {
			return
		}

		select {
		case events <- evt.Transaction:
		default:
		}
	})

	e.tracker.Watch(&obs)
	defer e.tracker.Unwatch(&obs)

	id, err := e.manager.Submit(ctx)
	if err != nil {
		return xerrors.Errorf("couldn't submit ballot: %v", err)
	}

	c.app.printf("Transaction %s sent\n", id)

	timeout := time.After(flags.Duration("timeout"))

	for {
		select {
		case tx := <-events:
			if tx.ID != id {
				continue
			}

			switch tx.Status {
			case txn.StatusPending:
				c.app.printf("Pending %s\n", tx.Hash)

				if !c.app.cfg.Automine {
					e.chain.Mine()
				}
			case txn.StatusMined:
				c.app.printf("Voted on %d polls\n", count)
				return nil
			case txn.StatusFailed:
				return xerrors.Errorf("transaction failed: %v", tx.Err)
			}
		case <-timeout:
			return xerrors.Errorf("transaction %s not mined in time", id)
		}
	}
}

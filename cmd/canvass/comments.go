package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	canvass "go.canvass.io/canvass"
	"go.canvass.io/canvass/ballot/types"
	"go.canvass.io/canvass/cli"
	"go.canvass.io/canvass/comments"
	"go.canvass.io/canvass/comments/server"
	"go.canvass.io/canvass/core/store/kv"
	"go.canvass.io/canvass/proxy/http"
	"golang.org/x/xerrors"
)

const listTimeout = 10 * time.Second

// commentsController sets the commands to serve and read the comments.
//
// - implements cli.Initializer
type commentsController struct {
	app *app
}

// SetCommands implements cli.Initializer.
func (c commentsController) SetCommands(builder cli.Builder) {
	cmd := builder.SetCommand("comments")
	cmd.SetDescription("serve or read the comments of the polls")

	sub := cmd.SetSubCommand("serve")
	sub.SetDescription("start the comment service")
	sub.SetAction(c.serveAction)

	sub = cmd.SetSubCommand("list")
	sub.SetDescription("print the comments of a poll")
	sub.SetFlags(cli.Uint64Flag{
		Name:     "poll",
		Usage:    "identifier of the poll",
		Required: true,
	})
	sub.SetAction(c.listAction)
}

func (c commentsController) serveAction(flags cli.Flags) error {
	cfg := c.app.cfg

	err := os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return xerrors.Errorf("couldn't create data folder: %v", err)
	}

	db, err := kv.New(filepath.Join(cfg.DataDir, "comments.db"))
	if err != nil {
		return xerrors.Errorf("couldn't open database: %v", err)
	}

	defer db.Close()

	srv := http.NewHTTP(cfg.Listen)

	server.NewService(db).Register(srv)
	srv.RegisterMetrics(cfg.MetricsPath, canvass.PromCollectors...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)

	go func() {
		done <- srv.Listen()
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
	}

	err = srv.Stop()
	if err != nil {
		return err
	}

	return <-done
}

func (c commentsController) listAction(flags cli.Flags) error {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	client := comments.NewClient(c.app.cfg.CommentsURL)

	entries, err := client.List(ctx, c.app.cfg.Network, types.PollID(flags.Uint64("poll")))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		c.app.printf("No comment.\n")
		return nil
	}

	for _, entry := range entries {
		c.app.printf("%s\t%s\t%q\n", entry.VoterAddress, entry.Option, entry.Comment.Comment)
	}

	return nil
}

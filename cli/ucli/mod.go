// Package ucli provides a cli builder implementation based on the urfave/cli
// library.
//
// Documentation Last Review: 14.07.2026
//
package ucli

import (
	"fmt"
	"io"
	"os"

	urfave "github.com/urfave/cli/v2"
	"go.canvass.io/canvass/cli"
)

// Builder implements a cli builder based on urfave/cli
//
// - implements cli.Builder
type Builder struct {
	commands []*cmdBuilder
	name     string
	usage    string
	writer   io.Writer
	before   cli.Action
	action   cli.Action
	flags    []cli.Flag
}

// Option is the type of option to create a builder.
type Option func(*Builder)

// WithUsage is an option to set the description of the application.
func WithUsage(usage string) Option {
	return func(b *Builder) {
		b.usage = usage
	}
}

// WithWriter is an option to set the output of the help and of the errors.
func WithWriter(w io.Writer) Option {
	return func(b *Builder) {
		b.writer = w
	}
}

// WithBefore is an option to set an action that runs before any command, for
// instance to load a configuration from the global flags.
func WithBefore(action cli.Action) Option {
	return func(b *Builder) {
		b.before = action
	}
}

// WithFlags is an option to set global flags available from all the
// commands.
func WithFlags(flags ...cli.Flag) Option {
	return func(b *Builder) {
		b.flags = append(b.flags, flags...)
	}
}

// NewBuilder returns a new initialized builder. Action allows one to define a
// primary action, but can be nil if we only needs to define commands.
func NewBuilder(name string, action cli.Action, opts ...Option) *Builder {
	b := &Builder{
		name:   name,
		writer: os.Stdout,
		action: action,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build implements cli.Builder.
func (b *Builder) Build() cli.Application {
	app := &urfave.App{
		Name:      b.name,
		Usage:     b.usage,
		Writer:    b.writer,
		ErrWriter: b.writer,
		Commands:  buildCommand(b.commands),
		Before:    makeBefore(b.before),
		Action:    makeAction(b.action),
		Flags:     buildFlags(b.flags),
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{
		name: name,
	}
	b.commands = append(b.commands, cmd)

	return cmd
}

// commandBuilder is the struct provided to build commands.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []urfave.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = buildFlags(flags)
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	builder := &cmdBuilder{
		name: name,
	}
	b.subcommands = append(b.subcommands, builder)

	return builder
}

// buildFlags converts cli.Flag to their corresponding urfave/cli.
func buildFlags(flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, len(flags))

	for i, f := range flags {
		var flag urfave.Flag

		switch e := f.(type) {
		case cli.StringFlag:
			flag = &urfave.StringFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				EnvVars:  e.EnvVars,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.StringSliceFlag:
			flag = &urfave.StringSliceFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				EnvVars:  e.EnvVars,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    urfave.NewStringSlice(e.Value...),
			}
		case cli.DurationFlag:
			flag = &urfave.DurationFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				EnvVars:  e.EnvVars,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.IntFlag:
			flag = &urfave.IntFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				EnvVars:  e.EnvVars,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.Uint64Flag:
			flag = &urfave.Uint64Flag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				EnvVars:  e.EnvVars,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.BoolFlag:
			flag = &urfave.BoolFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				EnvVars:  e.EnvVars,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
			}
		default:
			panic(fmt.Sprintf("flag type '%T' not supported", f))
		}

		res[i] = flag
	}

	return res
}

// buildCommand recursively builds the commands from a cmdBuilder struct to a
// urfave commands.
func buildCommand(cmds []*cmdBuilder) []*urfave.Command {
	commands := make([]*urfave.Command, len(cmds))

	for i, cmd := range cmds {
		commands[i] = &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Action:      makeAction(cmd.action),
			Flags:       cmd.flags,
			Subcommands: buildCommand(cmd.subcommands),
		}
	}

	return commands
}

// makeAction transforms a cli.Action to its urfave form.
func makeAction(action cli.Action) urfave.ActionFunc {
	if action != nil {
		return func(ctx *urfave.Context) error {
			return action(ctx)
		}
	}
	return nil
}

// makeBefore transforms a cli.Action to an urfave before function.
func makeBefore(action cli.Action) urfave.BeforeFunc {
	if action == nil {
		return nil
	}

	return func(ctx *urfave.Context) error {
		return action(ctx)
	}
}

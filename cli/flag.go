package cli

import "time"

// The flags share the same fields. Aliases are the alternative names of the
// flag, and EnvVars the environment variables read when the flag is not
// given on the command line.

// StringFlag is a command flag parsed as a string.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    string
}

// Flag implements cli.Flag.
func (flag StringFlag) Flag() {}

// StringSliceFlag is a command flag parsed as a slice of strings. The flag can be repeated.
//
// - implements cli.Flag
type StringSliceFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    []string
}

// Flag implements cli.Flag.
func (flag StringSliceFlag) Flag() {}

// DurationFlag is a command flag parsed as a duration, like a timeout.
//
// - implements cli.Flag
type DurationFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    time.Duration
}

// Flag implements cli.Flag.
func (flag DurationFlag) Flag() {}

// IntFlag is a command flag parsed as an integer.
//
// - implements cli.Flag
type IntFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    int
}

// Flag implements cli.Flag.
func (flag IntFlag) Flag() {}

// Uint64Flag is a command flag parsed as an unsigned integer, like a poll identifier.
//
// - implements cli.Flag
type Uint64Flag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    uint64
}

// Flag implements cli.Flag.
func (flag Uint64Flag) Flag() {}

// BoolFlag is a command flag parsed as a boolean.
//
// - implements cli.Flag
type BoolFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    bool
}

// Flag implements cli.Flag.
func (flag BoolFlag) Flag() {}

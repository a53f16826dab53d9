package main

import (
	"go.canvass.io/canvass/cli"
	"go.canvass.io/canvass/tag"
)

// tagsController sets the command to print the known tags.
//
// - implements cli.Initializer
type tagsController struct {
	app *app
}

// SetCommands implements cli.Initializer.
func (c tagsController) SetCommands(builder cli.Builder) {
	cmd := builder.SetCommand("tags")
	cmd.SetDescription("print the tags of the polls")
	cmd.SetFlags(cli.StringSliceFlag{
		Name:  "id",
		Usage: "identifiers of the tags to print, all of them if empty",
	})
	cmd.SetAction(c.listAction)
}

func (c tagsController) listAction(flags cli.Flags) error {
	ids := flags.StringSlice("id")
	if len(ids) == 0 {
		for _, t := range c.app.cfg.Tags {
			ids = append(ids, t.ID)
		}
	}

	for _, id := range ids {
		label := tag.Render(id, c.app.cfg.Tags, nil)
		if label == nil {
			c.app.printf("%s\tunknown tag\n", id)
			continue
		}

		c.app.printf("%-20s %s\t%s\n", id, label, label.Tag().LongName)
	}

	return nil
}

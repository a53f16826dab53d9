// Package tag renders the tags of the polls as styled terminal labels.
package tag

import (
	"github.com/charmbracelet/lipgloss"
)

// Tag is a category a poll belongs to.
type Tag struct {
	ID          string `json:"id" yaml:"id"`
	ShortName   string `json:"shortname" yaml:"shortname"`
	LongName    string `json:"longname" yaml:"longname"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Label is a tag ready to be displayed.
type Label struct {
	tag     Tag
	style   lipgloss.Style
	onClick func(Tag)
}

// Render returns the label of the tag with the identifier, or nil if the tag
// does not exist in the list.
func Render(id string, tags []Tag, onClick func(Tag)) *Label {
	for _, t := range tags {
		if t.ID != id {
			continue
		}

		style := StyleOf(id)
		if onClick != nil {
			style = style.Underline(true)
		}

		return &Label{
			tag:     t,
			style:   style,
			onClick: onClick,
		}
	}

	return nil
}

// Tag returns the tag of the label.
func (l *Label) Tag() Tag {
	return l.tag
}

// Style returns the style of the label.
func (l *Label) Style() lipgloss.Style {
	return l.style
}

// Clickable returns true when the label has a click handler.
func (l *Label) Clickable() bool {
	return l.onClick != nil
}

// Click calls the handler with the tag, if any.
func (l *Label) Click() {
	if l.onClick != nil {
		l.onClick(l.tag)
	}
}

// String implements fmt.Stringer. It returns the short name of the tag with
// its style applied.
func (l *Label) String() string {
	return l.style.Render(l.tag.ShortName)
}

// StyleOf returns the style of the tag identifier. Unknown identifiers have
// no style and inherit the appearance of the terminal.
func StyleOf(id string) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1)

	switch id {
	case "collateral-onboard", "collateral-offboard":
		return base.Foreground(lipgloss.Color("#1AAB9B")).Background(lipgloss.Color("#E7FCFA"))
	case "risk-parameter", "ratification":
		return base.Foreground(lipgloss.Color("#D4A017")).Background(lipgloss.Color("#FDF6E3"))
	case "oracles", "technical":
		return base.Foreground(lipgloss.Color("#447AFB")).Background(lipgloss.Color("#EAF1FF"))
	case "budget", "core-unit-onboard", "core-unit-offboard":
		return base.Foreground(lipgloss.Color("#9A4BFF")).Background(lipgloss.Color("#F3EBFF"))
	case "greenlight", "high-impact":
		return base.Foreground(lipgloss.Color("#F75524")).Background(lipgloss.Color("#FFF1EC"))
	case "auctions", "d3m", "psm":
		return base.Foreground(lipgloss.Color("#5D48FF")).Background(lipgloss.Color("#EFEDFF"))
	default:
		return lipgloss.NewStyle()
	}
}

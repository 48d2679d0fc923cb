package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/s2d/internal/models"
)

var (
	_ list.Item         = trackItem{}
	_ list.ItemDelegate = trackDelegate{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.Artist()
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	if i.track.ISRC != "" {
		return fmt.Sprintf("%s • ISRC: %s", desc, i.track.ISRC)
	}
	return desc + " • No ISRC"
}

// trackDelegate renders a checkbox in front of each track.
type trackDelegate struct {
	selection *models.Selection
}

func (d trackDelegate) Height() int                             { return 2 }
func (d trackDelegate) Spacing() int                            { return 1 }
func (d trackDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d trackDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(trackItem)
	if !ok {
		return
	}

	box := "[ ]"
	if d.selection.IsSelected(ti.track.ID) {
		box = "[x]"
	}

	cursor := "  "
	title := ti.Title()
	if index == m.Index() {
		cursor = "> "
		title = styles.ok.Render(title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %s\n", cursor, box, title)
	fmt.Fprintf(&b, "      %s", styles.muted.Render(ti.Description()))
	fmt.Fprint(w, b.String())
}

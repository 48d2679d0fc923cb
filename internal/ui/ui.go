package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	TrackListView
	NameView
	TransferView
	ResultView
)

// FetchFunc loads the tracks of the playlist being transferred.
type FetchFunc func(ctx context.Context) ([]models.Track, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	fetch        FetchFunc
	engine       *tasks.TransferEngine
	width        int
	height       int
	spinner      spinner.Model
	tracks       []models.Track
	selection    *models.Selection
	trackList    list.Model
	nameInput    textinput.Model
	resultView   viewport.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan transferComplete
	progress     tasks.ProgressUpdate
	result       *models.TransferResult
	notice       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. name pre-fills the playlist name input.
func NewModel(ctx context.Context, fetch FetchFunc, engine *tasks.TransferEngine, name string) *Model {
	input := textinput.New()
	input.Placeholder = "Deezer playlist name"
	input.CharLimit = 200
	input.SetValue(name)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Model{
		ctx:        ctx,
		view:       LoadingView,
		fetch:      fetch,
		engine:     engine,
		spinner:    s,
		selection:  models.NewSelection(nil),
		nameInput:  input,
		resultView: viewport.New(0, 0),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts fetching the playlist.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchTracks())
}

// Selected returns the checked track IDs in fetch order.
func (m *Model) Selected() []string {
	return m.selection.Selected()
}

// Result returns the last transfer result, if any.
func (m *Model) Result() *models.TransferResult {
	return m.result
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view != LoadingView {
			m.trackList.SetSize(msg.Width-4, msg.Height-6)
		}
		m.resultView.Width = msg.Width - 4
		m.resultView.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView, TransferView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case NameView:
			return m.handleNameKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != LoadingView && m.view != TransferView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.setTracks(data.tracks)
		m.view = TrackListView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgTransferComplete:
		data := msg.data.(transferComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		m.resultView.SetContent(m.renderResultBody())
		m.resultView.GotoTop()
		return m, nil
	}
	return m, nil
}

// setTracks rebuilds the checklist with every track selected.
func (m *Model) setTracks(tracks []models.Track) {
	m.tracks = tracks
	m.selection.Reset(tracks)

	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}

	m.trackList = list.New(items, trackDelegate{selection: m.selection}, m.width-4, m.height-6)
	m.trackList.SetFilteringEnabled(false)
	m.trackList.SetShowHelp(false)
	m.trackList.DisableQuitKeybindings()
	m.updateTitle()
}

func (m *Model) updateTitle() {
	m.trackList.Title = fmt.Sprintf("Tracks • %s", m.selection.Summary())
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return fmt.Sprintf("%s Fetching playlist...\n", m.spinner.View())
	case TrackListView:
		return m.renderTrackList()
	case NameView:
		return m.renderName()
	case TransferView:
		return m.renderTransfer()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.selection.Toggle(item.track.ID)
			m.updateTitle()
		}
		return m, nil
	case key.Matches(msg, m.keys.selectAll):
		m.selection.SelectAll()
		m.updateTitle()
		return m, nil
	case key.Matches(msg, m.keys.deselectAll):
		m.selection.DeselectAll()
		m.updateTitle()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if m.selection.Count() == 0 {
			m.notice = "Please select at least one track"
			return m, nil
		}
		m.view = NameView
		return m, m.nameInput.Focus()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleNameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.nameInput.Blur()
		m.view = TrackListView
		return m, nil
	case tea.KeyEnter:
		if strings.TrimSpace(m.nameInput.Value()) == "" {
			m.notice = "Please enter a playlist name"
			return m, nil
		}
		m.nameInput.Blur()
		m.view = TransferView
		return m, tea.Batch(m.spinner.Tick, m.startTransfer())
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = TrackListView
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}

	var cmd tea.Cmd
	m.resultView, cmd = m.resultView.Update(msg)
	return m, cmd
}

func (m *Model) fetchTracks() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.fetch(m.ctx)
		return tracksFetchedMsg(tracks, err)
	}
}

// startTransfer runs the engine in the background; progress and the outcome
// arrive through channels read by [Model.waitForProgress].
func (m *Model) startTransfer() tea.Cmd {
	req := models.TransferRequest{
		PlaylistName:     strings.TrimSpace(m.nameInput.Value()),
		SelectedTrackIDs: m.selection.Selected(),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan transferComplete, 1)
	m.progressChan = progress
	m.doneChan = done

	go func() {
		result, err := m.engine.Run(m.ctx, req, progress)
		done <- transferComplete{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		outcome := <-done
		return transferCompleteMsg(outcome.result, outcome.err)
	}
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.toggle, m.keys.selectAll, m.keys.deselectAll, m.keys.enter, m.keys.quit}
	out := fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
	if m.notice != "" {
		out += "\n" + styles.warn.Render(m.notice)
	}
	return out
}

func (m *Model) renderName() string {
	title := styles.title.Render("Name the Deezer playlist")
	info := fmt.Sprintf("%d tracks selected\n\n%s", m.selection.Count(), m.nameInput.View())

	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	out := fmt.Sprintf("%s\n%s\n\n%s", title, info, m.help.ShortHelpView(helpKeys))
	if m.notice != "" {
		out += "\n" + styles.warn.Render(m.notice)
	}
	return out
}

func (m *Model) renderTransfer() string {
	title := styles.title.Render("Transferring to Deezer")

	var phase string
	switch m.progress.Phase {
	case tasks.Resolve:
		phase = "Resolving selected tracks..."
	case tasks.Match:
		phase = fmt.Sprintf("Matching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating playlist on Deezer..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), phase, m.progress.Message)
}

func (m *Model) renderResultBody() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Transfer failed: %v", m.err))
	}
	if m.result == nil {
		return styles.err.Render("No result available")
	}

	data, err := shared.MarshalJSON(m.result, true)
	if err != nil {
		return styles.err.Render(err.Error())
	}
	return string(data)
}

func (m *Model) renderResult() string {
	title := styles.ok.Render("✓ Transfer Complete!")
	if m.err != nil || m.result == nil {
		title = styles.err.Render("✗ Transfer Failed")
	} else {
		title += styles.muted.Render(fmt.Sprintf("  %d/%d matched", m.result.Matched, m.result.Total))
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.resultView.View(), m.help.ShortHelpView(helpKeys))
}

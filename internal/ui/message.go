package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksFetched MsgKind = iota
	MsgProgressUpdate
	MsgTransferComplete
)

type tracksFetched struct {
	tracks []models.Track
	err    error
}

type transferComplete struct {
	result *models.TransferResult
	err    error
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksFetched{tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// transferCompleteMsg is the constructor for [MsgTransferComplete]
func transferCompleteMsg(result *models.TransferResult, err error) Msg {
	return Msg{kind: MsgTransferComplete, data: transferComplete{result, err}}
}

// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is the terminal rendition of the web page:
//  1. [LoadingView] : Fetch the playlist's tracks
//  2. [TrackListView] : Checklist of tracks, all selected, with a "N / M selected" counter
//  3. [NameView] : Name the Deezer playlist
//  4. [TransferView] : Monitor real-time progress updates
//  5. [ResultView] : The transfer result as JSON
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the TransferEngine, providing non-blocking status reporting during transfers.
//
// Keyboard navigation uses vim-style bindings (j/k, space, a/n, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui

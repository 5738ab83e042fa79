// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for queueing tracks:
//  1. [PlaylistListView] : Browse and select playlists
//  2. [TrackListView] : Browse tracks within a playlist
//  3. [ConfirmView] : Confirm before pushing a track onto the queue
//  4. [ResultView] : Display the outcome of the queue request
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui

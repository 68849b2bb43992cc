// Package tui implements the interactive viewer on Bubble Tea.
//
// The model owns the viewer session's foreground side: every navigation
// call happens in Update. Renders run in a tea.Cmd and come back as
// frameMsg; a frame whose request no longer matches the pending one is
// dropped.
package tui

package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the viewer key bindings.
type keyMap struct {
	Prev      key.Binding
	Next      key.Binding
	First     key.Binding
	Last      key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ZoomReset key.Binding
	Info      key.Binding
	Files     key.Binding
	Dirs      key.Binding
	Up        key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding

	// Subdirectory chooser.
	CursorUp   key.Binding
	CursorDown key.Binding
	Select     key.Binding
	Back       key.Binding
}

// ShortHelp returns the bindings shown in the help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Info, k.Help, k.Quit}
}

// FullHelp returns every binding grouped for the help panel.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.First, k.Last},
		{k.ZoomIn, k.ZoomOut, k.ZoomReset},
		{k.Info, k.Files, k.Dirs, k.Up, k.Refresh},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the viewer key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Prev: key.NewBinding(
			key.WithKeys("left", "a", "h"),
			key.WithHelp("←/a/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "d", "l"),
			key.WithHelp("→/d/l", "next"),
		),
		First: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first"),
		),
		Last: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "zoom out"),
		),
		ZoomReset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset zoom"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "info"),
		),
		Files: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "file list"),
		),
		Dirs: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open subdir"),
		),
		Up: key.NewBinding(
			key.WithKeys("u", "backspace"),
			key.WithHelp("u", "parent dir"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		CursorUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		CursorDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// chooserKeys is the help bar content while the subdirectory chooser is open.
type chooserKeys struct{ keyMap }

// ShortHelp returns the chooser bindings.
func (k chooserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.CursorUp, k.CursorDown, k.Select, k.Back}
}

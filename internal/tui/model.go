package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pixelterm/internal/index"
	"pixelterm/internal/termsize"
	"pixelterm/internal/viewer"
)

// chromeHeight is the number of lines below the image: status bar and help bar.
const chromeHeight = 2

// overlay selects what replaces the image area.
type overlay int

const (
	overlayNone overlay = iota
	overlayInfo
	overlayHelp
	overlayFiles
	overlayDirs
)

// frameMsg carries a finished render back to Update.
type frameMsg struct {
	frame viewer.Frame
}

// Model is the root Bubble Tea model for the viewer.
type Model struct {
	ctx     context.Context
	session *viewer.Session
	keys    keyMap
	help    help.Model

	width   int
	height  int
	overlay overlay

	dirs      []string
	dirCursor int

	pending   viewer.Request
	loading   bool
	frame     viewer.Frame
	hasFrame  bool
	notice    string
	noticeErr bool
}

// New creates the model. ctx bounds every render started from it.
func New(ctx context.Context, session *viewer.Session) Model {
	return Model{
		ctx:     ctx,
		session: session,
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
}

// Init returns nil; the first render starts on the initial WindowSizeMsg.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		size := termsize.Size{Cols: msg.Width, Rows: msg.Height}.Viewport(chromeHeight)
		if m.session.SetGeometry(size) || (!m.hasFrame && !m.loading) {
			return m.render()
		}
		return m, nil

	case frameMsg:
		if msg.frame.Request != m.pending {
			return m, nil
		}
		m.frame = msg.frame
		m.hasFrame = true
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay == overlayDirs {
		return m.handleChooserKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.overlay = toggle(m.overlay, overlayHelp)
		return m, nil
	case key.Matches(msg, m.keys.Info):
		m.overlay = toggle(m.overlay, overlayInfo)
		return m, nil
	case key.Matches(msg, m.keys.Files):
		m.overlay = toggle(m.overlay, overlayFiles)
		return m, nil
	case key.Matches(msg, m.keys.Dirs):
		dirs, err := m.session.Subdirectories()
		if err != nil {
			m.setNotice(err.Error(), true)
			return m, nil
		}
		if len(dirs) == 0 {
			m.setNotice("no subdirectories", false)
			return m, nil
		}
		m.dirs = dirs
		m.dirCursor = 0
		m.overlay = overlayDirs
		return m, nil
	case key.Matches(msg, m.keys.Next):
		return m.navigate(m.session.Next())
	case key.Matches(msg, m.keys.Prev):
		return m.navigate(m.session.Prev())
	case key.Matches(msg, m.keys.First):
		return m.navigate(m.session.First())
	case key.Matches(msg, m.keys.Last):
		return m.navigate(m.session.Last())
	case key.Matches(msg, m.keys.Refresh):
		if err := m.session.Refresh(); err != nil {
			return m.navigate(err)
		}
		m.setNotice(fmt.Sprintf("%d images", m.session.Len()), false)
		return m.render()
	case key.Matches(msg, m.keys.Up):
		if err := m.session.Up(m.ctx); err != nil {
			return m.navigate(err)
		}
		m.setNotice(m.session.Directory(), false)
		return m.render()
	case key.Matches(msg, m.keys.ZoomIn):
		return m.zoom(viewer.ZoomIn)
	case key.Matches(msg, m.keys.ZoomOut):
		return m.zoom(viewer.ZoomOut)
	case key.Matches(msg, m.keys.ZoomReset):
		return m.zoom(viewer.ZoomReset)
	}
	return m, nil
}

func (m Model) handleChooserKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Dirs):
		m.overlay = overlayNone
	case key.Matches(msg, m.keys.CursorUp):
		if m.dirCursor > 0 {
			m.dirCursor--
		}
	case key.Matches(msg, m.keys.CursorDown):
		if m.dirCursor < len(m.dirs)-1 {
			m.dirCursor++
		}
	case key.Matches(msg, m.keys.Select):
		m.overlay = overlayNone
		if err := m.session.Enter(m.ctx, m.dirs[m.dirCursor]); err != nil {
			return m.navigate(err)
		}
		m.setNotice(m.session.Directory(), false)
		return m.render()
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) navigate(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		if errors.Is(err, index.ErrEmpty) {
			m.setNotice("no images in this directory", false)
		} else {
			m.setNotice(err.Error(), true)
		}
		return m, nil
	}
	m.notice = ""
	return m.render()
}

func (m Model) zoom(dir viewer.ZoomDirection) (tea.Model, tea.Cmd) {
	before := m.session.Scale()
	if m.session.Zoom(dir) == before {
		return m, nil
	}
	m.setNotice(fmt.Sprintf("zoom %.1fx", m.session.Scale()), false)
	return m.render()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// render starts a render of the current image.
func (m Model) render() (tea.Model, tea.Cmd) {
	req, err := m.session.Request()
	if err != nil {
		m.pending = viewer.Request{}
		m.frame = viewer.Frame{}
		m.hasFrame = false
		m.loading = false
		return m, nil
	}
	m.pending = req
	m.loading = true
	return m, m.renderCmd(req)
}

func (m Model) renderCmd(req viewer.Request) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return frameMsg{frame: session.Render(ctx, req)}
	}
}

// View renders the image area, the status bar and the help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	area := termsize.Size{Cols: m.width, Rows: m.height}.Viewport(chromeHeight)
	body := lipgloss.NewStyle().
		MaxWidth(area.Cols).
		Height(area.Rows).
		MaxHeight(area.Rows).
		Render(m.viewBody())

	var helpView string
	if m.overlay == overlayDirs {
		helpView = m.help.View(chooserKeys{m.keys})
	} else {
		helpView = m.help.View(m.keys)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatus(), helpView)
}

func (m Model) viewBody() string {
	switch m.overlay {
	case overlayHelp:
		return panelStyle.Render(m.help.FullHelpView(m.keys.FullHelp()))
	case overlayInfo:
		return m.viewInfo()
	case overlayFiles:
		return m.viewFiles()
	case overlayDirs:
		return m.viewDirs()
	}

	if m.session.Len() == 0 {
		return dimStyle.Render("No images in " + m.session.Directory())
	}
	if !m.hasFrame {
		return dimStyle.Render("Rendering...")
	}
	if m.frame.Err != nil {
		return errorStyle.Render("Cannot display " + filepath.Base(m.frame.Path) + ": " + m.frame.Err.Error())
	}
	return strings.TrimRight(string(m.frame.Output), "\n")
}

func (m Model) viewInfo() string {
	info, err := m.session.Info()
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	rows := [][2]string{
		{"File", info.Name},
		{"Directory", info.Directory},
		{"Position", info.Counter()},
		{"Size", info.HumanSize()},
		{"Dimensions", info.Dimensions()},
		{"Format", info.Format},
		{"Modified", info.ModTime.Format("2006-01-02 15:04")},
		{"Zoom", fmt.Sprintf("%.1fx", m.session.Scale())},
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+row[1])
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) viewFiles() string {
	// Two rows go to the panel border.
	rows := termsize.Size{Cols: m.width, Rows: m.height}.Viewport(chromeHeight + 2).Rows
	start, paths := m.session.Window(rows)
	if len(paths) == 0 {
		return dimStyle.Render("No images in " + m.session.Directory())
	}
	lines := make([]string, 0, len(paths))
	for i, path := range paths {
		line := fmt.Sprintf("%4d  %s", start+i+1, filepath.Base(path))
		if start+i == m.session.Position() {
			line = nameStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) viewDirs() string {
	lines := make([]string, 0, len(m.dirs))
	for i, name := range m.dirs {
		if i == m.dirCursor {
			lines = append(lines, nameStyle.Render("> "+name+"/"))
		} else {
			lines = append(lines, "  "+name+"/")
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) viewStatus() string {
	var parts []string
	if path, ok := m.session.Current(); ok {
		parts = append(parts,
			nameStyle.Render(filepath.Base(path)),
			fmt.Sprintf("%d/%d", m.session.Position()+1, m.session.Len()),
		)
	} else {
		parts = append(parts, nameStyle.Render(filepath.Base(m.session.Directory())))
	}
	if scale := m.session.Scale(); scale != 1.0 {
		parts = append(parts, fmt.Sprintf("%.1fx", scale))
	}
	switch {
	case m.loading:
		parts = append(parts, "rendering")
	case m.hasFrame && m.frame.Err == nil:
		parts = append(parts, fmt.Sprintf("%s %s", m.frame.Source, m.frame.Elapsed.Round(time.Millisecond)))
	}
	if m.notice != "" {
		if m.noticeErr {
			parts = append(parts, errorStyle.Render(m.notice))
		} else {
			parts = append(parts, m.notice)
		}
	}
	return statusBarStyle.Width(m.width).MaxHeight(1).Render(" " + strings.Join(parts, "  "))
}

func toggle(current, target overlay) overlay {
	if current == target {
		return overlayNone
	}
	return target
}

// Run starts the interactive program on the alternate screen.
func Run(ctx context.Context, session *viewer.Session, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, session), opts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

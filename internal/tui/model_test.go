package tui

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"pixelterm/internal/renderer"
	"pixelterm/internal/testsupport"
	"pixelterm/internal/viewer"
)

func newSession(t *testing.T, names ...string) *viewer.Session {
	t.Helper()
	dir, _ := testsupport.ImageDir(t, names...)
	render := renderer.Func(func(_ context.Context, path string, _ renderer.Options) ([]byte, error) {
		return []byte("out:" + filepath.Base(path) + "\n"), nil
	})
	s, err := viewer.New(viewer.Options{Renderer: render, CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("viewer.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Open(context.Background(), dir); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive applies msg and feeds any resulting frame back into the model.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if out, ok := cmd().(frameMsg); ok {
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func TestModel_FirstFrameAfterWindowSize(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png", "b.png", "c.png"))
	if m.Init() != nil {
		t.Fatal("Init should not render before the size is known")
	}
	if got := m.View(); got != "Initializing..." {
		t.Fatalf("View before size = %q", got)
	}

	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	view := m.View()
	if !strings.Contains(view, "out:a.png") || !strings.Contains(view, "1/3") {
		t.Fatalf("view missing frame or counter:\n%s", view)
	}
	if got := m.session.Geometry(); got.Cols != 80 || got.Rows != 22 {
		t.Fatalf("geometry = %+v, want 80x22", got)
	}
}

func TestModel_NavigationKeys(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png", "b.png", "c.png"))
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	tests := []struct {
		msg  tea.Msg
		want string
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, "out:b.png"},
		{keyRunes("d"), "out:c.png"},
		{keyRunes("l"), "out:a.png"},
		{tea.KeyMsg{Type: tea.KeyLeft}, "out:c.png"},
		{keyRunes("g"), "out:a.png"},
		{keyRunes("G"), "out:c.png"},
		{keyRunes("h"), "out:b.png"},
	}
	for _, tt := range tests {
		m = drive(t, m, tt.msg)
		if view := m.View(); !strings.Contains(view, tt.want) {
			t.Fatalf("after %v want %q in view:\n%s", tt.msg, tt.want, view)
		}
	}
}

func TestModel_StaleFrameDropped(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png", "b.png"))
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	stale := cmd()

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})
	next, _ = m.Update(stale)
	m = next.(Model)
	if view := m.View(); strings.Contains(view, "out:a.png") || !strings.Contains(view, "out:b.png") {
		t.Fatalf("stale frame replaced current one:\n%s", view)
	}
}

func TestModel_InfoAndHelpOverlays(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png"))
	m = drive(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	m = drive(t, m, keyRunes("i"))
	view := m.View()
	for _, want := range []string{"Dimensions", "4x3", "PNG"} {
		if !strings.Contains(view, want) {
			t.Fatalf("info panel missing %q:\n%s", want, view)
		}
	}
	m = drive(t, m, keyRunes("?"))
	if view := m.View(); !strings.Contains(view, "zoom in") || strings.Contains(view, "Dimensions") {
		t.Fatalf("help overlay not shown:\n%s", view)
	}
	m = drive(t, m, keyRunes("?"))
	if view := m.View(); !strings.Contains(view, "out:a.png") {
		t.Fatalf("closing help should show the image:\n%s", view)
	}
}

func TestModel_ZoomShowsScale(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png"))
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = drive(t, m, keyRunes("+"))
	if view := m.View(); !strings.Contains(view, "1.1x") || !strings.Contains(view, "direct") {
		t.Fatalf("zoomed status missing:\n%s", view)
	}
	m = drive(t, m, keyRunes("0"))
	if m.session.Scale() != 1.0 {
		t.Fatalf("scale after reset = %v", m.session.Scale())
	}
}

func TestModel_EmptyDirectory(t *testing.T) {
	m := New(context.Background(), newSession(t))
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if view := m.View(); !strings.Contains(view, "No images") {
		t.Fatalf("empty view:\n%s", view)
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "no images in this directory") {
		t.Fatalf("missing notice:\n%s", m.View())
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png"))
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
}

func TestModel_Teatest_Browse(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png", "b.png", "c.png"))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("out:a.png"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRight})
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("out:b.png"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(keyRunes("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.session.Position() != 1 {
		t.Fatalf("final position = %d, want 1", final.session.Position())
	}
}

func TestModel_FileListOverlay(t *testing.T) {
	m := New(context.Background(), newSession(t, "a.png", "b.png", "c.png"))
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m = drive(t, m, keyRunes("f"))
	view := m.View()
	if !strings.Contains(view, "> ") || !strings.Contains(view, "2  b.png") || !strings.Contains(view, "c.png") {
		t.Fatalf("file list not shown:\n%s", view)
	}
}

func TestModel_SubdirectoryChooser(t *testing.T) {
	dir, _ := testsupport.ImageDir(t, "a.png")
	for _, name := range []string{"alpha", "beta"} {
		sub := filepath.Join(dir, name)
		if err := os.Mkdir(sub, 0o755); err != nil {
			t.Fatal(err)
		}
		testsupport.WritePNG(t, filepath.Join(sub, name+".png"), 2, 2)
	}
	render := renderer.Func(func(_ context.Context, path string, _ renderer.Options) ([]byte, error) {
		return []byte("out:" + filepath.Base(path)), nil
	})
	s, err := viewer.New(viewer.Options{Renderer: render, CacheDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	m := New(context.Background(), s)
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = drive(t, m, keyRunes("o"))
	if view := m.View(); !strings.Contains(view, "alpha/") || !strings.Contains(view, "beta/") {
		t.Fatalf("chooser not shown:\n%s", view)
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := filepath.Base(s.Directory()); got != "beta" {
		t.Fatalf("entered %s, want beta", got)
	}
	if view := m.View(); !strings.Contains(view, "out:beta.png") {
		t.Fatalf("subdirectory image not shown:\n%s", view)
	}

	m = drive(t, m, keyRunes("u"))
	if s.Directory() != dir {
		t.Fatalf("Up went to %s, want %s", s.Directory(), dir)
	}
	if view := m.View(); !strings.Contains(view, "out:a.png") {
		t.Fatalf("parent image not shown:\n%s", view)
	}
}

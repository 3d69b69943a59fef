package tui

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/pipeline"
	"github.com/san-kum/kanedyn/internal/viz"
)

func deriveFromRegistry(ctx context.Context, name string) (*pipeline.Result, error) {
	m, err := pipeline.NewRegistry().Get(name)
	if err != nil {
		return nil, err
	}
	return pipeline.Derive(ctx, m, pipeline.Options{Timeout: time.Minute})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds one key and runs any command it returns.
func press(t *testing.T, m model, s string) model {
	t.Helper()
	next, cmd := m.Update(key(s))
	m = next.(model)
	if cmd != nil {
		if msg, ok := cmd().(derivedMsg); ok {
			next, _ = m.Update(msg)
			m = next.(model)
		}
	}
	return m
}

func TestExplorerBrowsePendulum(t *testing.T) {
	m := *NewExplorer([]string{"pendulum", "rotational"}, deriveFromRegistry, expr.Format{Notation: expr.Mechanics}, viz.ThemeMinimal)

	if !strings.Contains(m.View(), "pendulum") {
		t.Fatalf("menu:\n%s", m.View())
	}

	m = press(t, m, "enter")
	if m.state != stateBrowse {
		t.Fatalf("state = %v, err = %v", m.state, m.err)
	}
	view := m.View()
	for _, want := range []string{"q1' = u1", "u1' = g"} {
		if !strings.Contains(view, want) {
			t.Errorf("browse view missing %q:\n%s", want, view)
		}
	}
	if len(m.values) != 2 || m.values[1] != 9.81 {
		t.Fatalf("values = %v", m.values)
	}

	// arguments are [g u1]; nudge g
	m = press(t, m, "right")
	if math.Abs(m.values[1]-9.91) > 1e-12 {
		t.Errorf("after nudge u1' = %v, want 9.91", m.values[1])
	}

	m = press(t, m, "]")
	m = press(t, m, "enter")
	if !m.editing {
		t.Fatal("expected edit mode")
	}
	m = press(t, m, "backspace")
	m = press(t, m, "3")
	m = press(t, m, "enter")
	if m.values[0] != 3 {
		t.Errorf("after edit q1' = %v, want 3", m.values[0])
	}

	m = press(t, m, "down")
	if m.eqCursor != 1 || len(m.spark) != sparkPoints {
		t.Errorf("cursor %d, spark %d points", m.eqCursor, len(m.spark))
	}

	m = press(t, m, "esc")
	if m.state != stateMenu {
		t.Errorf("esc did not return to menu")
	}
}

func TestExplorerShowsDeriveError(t *testing.T) {
	fail := func(context.Context, string) (*pipeline.Result, error) {
		return nil, errors.New("reduce: compute budget exceeded")
	}
	m := *NewExplorer([]string{"platform"}, fail, expr.Format{}, viz.ThemeMinimal)
	m = press(t, m, "enter")
	if m.state != stateMenu {
		t.Fatalf("state = %v", m.state)
	}
	if !strings.Contains(m.View(), "budget exceeded") {
		t.Errorf("error not shown:\n%s", m.View())
	}
}

func TestExplorerThemeCycle(t *testing.T) {
	m := *NewExplorer([]string{"pendulum"}, deriveFromRegistry, expr.Format{}, viz.ThemeMinimal)
	m = press(t, m, "t")
	if m.styles.Theme.Name != "ocean" {
		t.Errorf("theme = %s, want ocean", m.styles.Theme.Name)
	}
}

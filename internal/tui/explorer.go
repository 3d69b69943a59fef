package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/kanedyn/internal/analysis"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/pipeline"
	"github.com/san-kum/kanedyn/internal/viz"
)

const sparkPoints = 48

type state int

const (
	stateMenu state = iota
	stateDeriving
	stateBrowse
)

// DeriveFunc runs the pipeline for a named mechanism.
type DeriveFunc func(ctx context.Context, name string) (*pipeline.Result, error)

type derivedMsg struct {
	res *pipeline.Result
	err error
}

type model struct {
	state      state
	cursor     int
	mechanisms []string
	selected   string
	derive     DeriveFunc
	format     expr.Format
	styles     viz.Styles

	res   *pipeline.Result
	err   error
	lines []string

	eqCursor    int
	params      map[string]float64
	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string

	values  []float64
	evalErr error
	spark   []float64

	width  int
	height int
}

func NewExplorer(mechanisms []string, derive DeriveFunc, f expr.Format, theme viz.Theme) *model {
	return &model{
		state:      stateMenu,
		mechanisms: mechanisms,
		derive:     derive,
		format:     f,
		styles:     viz.NewStyles(theme),
		width:      80,
		height:     24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case derivedMsg:
		if m.state != stateDeriving {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.state = stateMenu
			return m, nil
		}
		m.load(msg.res)
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateDeriving:
		if msg.String() == "esc" {
			m.state = stateMenu
		}
	case stateBrowse:
		return m.browseKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.mechanisms)-1 {
			m.cursor++
		}
	case "t":
		m.styles = viz.NewStyles(viz.NextTheme(m.styles.Theme))
	case "enter", " ":
		if len(m.mechanisms) == 0 {
			return m, nil
		}
		m.selected = m.mechanisms[m.cursor]
		m.state = stateDeriving
		m.err = nil
		name, derive := m.selected, m.derive
		return m, func() tea.Msg {
			res, err := derive(context.Background(), name)
			return derivedMsg{res: res, err: err}
		}
	}
	return m, nil
}

func (m *model) load(res *pipeline.Result) {
	m.res = res
	m.state = stateBrowse
	m.lines = res.Lines(m.format)
	m.eqCursor, m.paramCursor = 0, 0
	m.paramNames = res.Routine.ArgumentNames()
	m.params = make(map[string]float64, len(m.paramNames))
	for _, name := range m.paramNames {
		m.params[name] = res.Mechanism.Defaults[name]
	}
	m.recompute()
}

// recompute evaluates the equations at the current bindings and sweeps
// the selected equation over the selected argument.
func (m *model) recompute() {
	m.values, m.evalErr = m.res.Evaluate(m.params)
	m.spark = nil
	if m.evalErr != nil || len(m.paramNames) == 0 {
		return
	}
	base, err := m.res.Arguments(m.params)
	if err != nil {
		return
	}
	v := base[m.paramCursor]
	pts, err := analysis.Sweep(m.res.Callable, base, m.paramCursor, v-1, v+1, sparkPoints)
	if err != nil {
		return
	}
	m.spark = analysis.Column(pts, m.eqCursor)
}

func (m model) browseKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if val, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				m.params[m.paramNames[m.paramCursor]] = val
				m.recompute()
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.state = stateMenu
		m.res = nil
	case "up", "k":
		if m.eqCursor > 0 {
			m.eqCursor--
			m.recompute()
		}
	case "down", "j":
		if m.eqCursor < len(m.lines)-1 {
			m.eqCursor++
			m.recompute()
		}
	case "[":
		if m.paramCursor > 0 {
			m.paramCursor--
			m.recompute()
		}
	case "]":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
			m.recompute()
		}
	case "left", "h":
		if len(m.paramNames) > 0 {
			m.params[m.paramNames[m.paramCursor]] -= 0.1
			m.recompute()
		}
	case "right", "l":
		if len(m.paramNames) > 0 {
			m.params[m.paramNames[m.paramCursor]] += 0.1
			m.recompute()
		}
	case "enter", " ":
		if len(m.paramNames) > 0 {
			m.editing = true
			m.editBuf = strconv.FormatFloat(m.params[m.paramNames[m.paramCursor]], 'g', -1, 64)
		}
	case "t":
		m.styles = viz.NewStyles(viz.NextTheme(m.styles.Theme))
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateDeriving:
		return "\n      " + m.styles.Muted.Render("deriving "+m.selected+"…  esc back") + "\n"
	case stateBrowse:
		return m.viewBrowse()
	}
	return ""
}

func (m model) viewMenu() string {
	st := m.styles
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + st.Title.Render("k a n e d y n") + "\n")
	b.WriteString("    " + st.Separator(24) + "\n\n")

	for i, name := range m.mechanisms {
		if i == m.cursor {
			b.WriteString("      " + st.Rate.Render("▸ ") + st.Expr.Render(name) + "\n")
		} else {
			b.WriteString("        " + st.Muted.Render(name) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n      " + st.Error.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(st.Muted.Render("      ↑↓ select   enter derive   t theme   q quit") + "\n")
	return b.String()
}

func (m model) viewBrowse() string {
	st := m.styles
	var b strings.Builder

	b.WriteString("\n  " + st.Header.Render(m.res.Mechanism.Name+"  "+m.res.Mechanism.Description) + "\n\n")

	for i, line := range m.lines {
		val := ""
		if m.evalErr == nil && i < len(m.values) {
			val = st.Value.Render(fmt.Sprintf("%12.6g", m.values[i]))
		}
		marker := "    "
		if i == m.eqCursor {
			marker = "  " + st.Rate.Render("▸ ")
		}
		b.WriteString(marker + st.Equation(line) + "  " + val + "\n")
	}
	if m.evalErr != nil {
		b.WriteString("\n  " + st.Error.Render(m.evalErr.Error()) + "\n")
	}

	b.WriteString("\n")
	for i, name := range m.paramNames {
		val := fmt.Sprintf("%10.4g", m.params[name])
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("  " + st.Rate.Render("▸ ") + st.Expr.Render(fmt.Sprintf("%-8s", name)) + st.Value.Render(val) + "\n")
		} else {
			b.WriteString("    " + st.Muted.Render(fmt.Sprintf("%-8s", name)) + st.Muted.Render(val) + "\n")
		}
	}

	if len(m.spark) > 0 {
		name := m.paramNames[m.paramCursor]
		b.WriteString("\n  " + st.Label.Render(name+" ± 1  ") + st.SparklineChart(m.spark, sparkPoints) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(st.Muted.Render("  ↑↓ equation  [] argument  ←→ adjust  enter edit  t theme  esc back") + "\n")
	return b.String()
}

// RunExplorer starts the equation browser on the terminal.
func RunExplorer(mechanisms []string, derive DeriveFunc, f expr.Format, theme viz.Theme) error {
	p := tea.NewProgram(NewExplorer(mechanisms, derive, f, theme), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

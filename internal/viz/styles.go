package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles renders derivation output in one theme.
type Styles struct {
	Theme  Theme
	Title  lipgloss.Style
	Rate   lipgloss.Style
	Expr   lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
	Panel  lipgloss.Style
	Header lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		Rate:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Expr:  lipgloss.NewStyle().Foreground(t.Text),
		Label: lipgloss.NewStyle().Foreground(t.Muted),
		Value: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Muted: lipgloss.NewStyle().Foreground(t.Muted),
		Error: lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
	}
}

// Equation styles one "lhs = rhs" line.
func (s Styles) Equation(line string) string {
	lhs, rhs, ok := strings.Cut(line, " = ")
	if !ok {
		return s.Expr.Render(line)
	}
	return s.Rate.Render(lhs) + s.Muted.Render(" = ") + s.Expr.Render(rhs)
}

// Equations renders a titled panel of equations.
func (s Styles) Equations(title string, lines []string) string {
	body := make([]string, len(lines))
	for i, l := range lines {
		body[i] = s.Equation(l)
	}
	return s.Panel.Render(s.Title.Render(title) + "\n" + strings.Join(body, "\n"))
}

// Table renders aligned label/value pairs.
func (s Styles) Table(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	var sb strings.Builder
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s.Label.Width(width + 2).Render(r[0]))
		sb.WriteString(s.Value.Render(r[1]))
	}
	return sb.String()
}

// SparklineChart renders a mini sparkline of values, sampled to width.
func (s Styles) SparklineChart(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var sb strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / rng * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		sb.WriteRune(chars[idx])
	}
	return s.Value.Render(sb.String())
}

// Separator draws a muted rule.
func (s Styles) Separator(width int) string {
	if width < 8 {
		return s.Muted.Render(strings.Repeat("─", max(width, 0)))
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return s.Muted.Render(left + " ◆ " + right)
}

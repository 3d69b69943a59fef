package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/kanedyn/internal/dynamo"
)

// PhaseField samples the direction of motion on a grid over two state
// components, holding the others at x0.
type PhaseField struct {
	XIndex, YIndex int
	XMin, XMax     float64
	YMin, YMax     float64
	// DX and DY are indexed [row][col], row 0 at YMin.
	DX, DY [][]float64
}

// GeneratePhaseField evaluates sys on an nx by ny grid.
func GeneratePhaseField(sys dynamo.System, x0 dynamo.State, xIdx, yIdx int, xMin, xMax, yMin, yMax float64, nx, ny int) (*PhaseField, error) {
	if err := dynamo.Validate(sys, x0); err != nil {
		return nil, err
	}
	if xIdx < 0 || yIdx < 0 || xIdx >= len(x0) || yIdx >= len(x0) || xIdx == yIdx {
		return nil, fmt.Errorf("%w: components %d and %d", ErrSweepRange, xIdx, yIdx)
	}
	if nx < 2 || ny < 2 || !(xMax > xMin) || !(yMax > yMin) {
		return nil, fmt.Errorf("%w: %dx%d grid", ErrSweepRange, nx, ny)
	}

	f := &PhaseField{
		XIndex: xIdx, YIndex: yIdx,
		XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax,
		DX: make([][]float64, ny),
		DY: make([][]float64, ny),
	}
	for r := range f.DX {
		f.DX[r] = make([]float64, nx)
		f.DY[r] = make([]float64, nx)
	}

	dynamo.ParallelFor(ny, 1, func(start, end int) {
		x := x0.Clone()
		for r := start; r < end; r++ {
			x[yIdx] = yMin + float64(r)*(yMax-yMin)/float64(ny-1)
			for c := 0; c < nx; c++ {
				x[xIdx] = xMin + float64(c)*(xMax-xMin)/float64(nx-1)
				d := sys.Derive(x)
				f.DX[r][c], f.DY[r][c] = d[xIdx], d[yIdx]
			}
		}
	})
	return f, nil
}

var arrows = []rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// Arrow picks the glyph closest to the direction (dx, dy).
func Arrow(dx, dy float64) rune {
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return '?'
	}
	if dx == 0 && dy == 0 {
		return '·'
	}
	a := math.Atan2(dy, dx)
	k := int(math.Round(a/(math.Pi/4))) % 8
	if k < 0 {
		k += 8
	}
	return arrows[k]
}

// PhaseFieldToASCII renders the field with the largest y on top.
func PhaseFieldToASCII(f *PhaseField) string {
	if f == nil || len(f.DX) == 0 {
		return ""
	}
	var sb strings.Builder
	for r := len(f.DX) - 1; r >= 0; r-- {
		for c := range f.DX[r] {
			sb.WriteRune(Arrow(f.DX[r][c], f.DY[r][c]))
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

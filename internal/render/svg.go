package render

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"healthboard/internal/board"
)

var defaultPalette = []string{"#4caf50", "#f44336", "#2196f3", "#ff9800"}

// SVGPie draws pie charts as inline SVG.
type SVGPie struct {
	Size    int
	Palette []string
}

// NewSVGPie returns a renderer with a 120px chart and the default palette.
func NewSVGPie() *SVGPie {
	return &SVGPie{Size: 120, Palette: defaultPalette}
}

var _ board.ChartRenderer = (*SVGPie)(nil)

// Pie renders data as an SVG document fragment. Negative values count as
// zero; an all-zero dataset renders an empty ring.
func (p *SVGPie) Pie(data board.PieData) string {
	size := p.Size
	if size <= 0 {
		size = 120
	}
	palette := p.Palette
	if len(palette) == 0 {
		palette = defaultPalette
	}

	c := float64(size) / 2
	r := c - 2

	values := make([]float64, len(data.Values))
	var total float64
	for i, v := range data.Values {
		if v > 0 {
			values[i] = v
			total += v
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg class="pie" xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`, size, size, size, size)
	if total == 0 {
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="none" stroke="#9e9e9e"/>`, num(c), num(c), num(r))
	}

	angle := -math.Pi / 2
	for i, v := range values {
		if total == 0 || v == 0 {
			continue
		}
		frac := v / total
		color := palette[i%len(palette)]
		title := sliceTitle(data.Labels, i, data.Values[i], frac)

		if frac >= 0.99999 {
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s"><title>%s</title></circle>`, num(c), num(c), num(r), color, title)
			continue
		}

		end := angle + frac*2*math.Pi
		large := 0
		if frac > 0.5 {
			large = 1
		}
		fmt.Fprintf(&b, `<path d="M %s %s L %s %s A %s %s 0 %d 1 %s %s Z" fill="%s"><title>%s</title></path>`,
			num(c), num(c),
			num(c+r*math.Cos(angle)), num(c+r*math.Sin(angle)),
			num(r), num(r), large,
			num(c+r*math.Cos(end)), num(c+r*math.Sin(end)),
			color, title)
		angle = end
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func sliceTitle(labels []string, i int, value, frac float64) string {
	label := ""
	if i < len(labels) {
		label = labels[i]
	}
	return template.HTMLEscapeString(fmt.Sprintf("%s: %s (%.1f%%)", label, strconv.FormatFloat(value, 'f', -1, 64), frac*100))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// palette is cycled by slot order.
var palette = []string{"#7aa2f7", "#9ece6a", "#e0af68", "#f7768e", "#bb9af7", "#7dcfff"}

// SnapshotToSVG draws the arena and every body at the given scale.
func SnapshotToSVG(bodies []dynamo.Body, arena dynamo.Bounds, scale float64) string {
	if scale <= 0 {
		scale = 1
	}
	width := arena.Width * scale
	height := arena.Height * scale

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="none">
`, width, height, width, height)

	for i, b := range bodies {
		fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>
`, b.Position.X*scale, b.Position.Y*scale, b.Radius*scale, palette[i%len(palette)])
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesToSVG plots a per-frame series, such as kinetic energy, as a polyline.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(len(values) - 1)

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i, v := range values {
		x := float64(i) / rangeX * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)

		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

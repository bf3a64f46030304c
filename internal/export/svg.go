// Package export writes run data in formats other tools can open.
package export

import (
	"fmt"
	"math"
	"strings"
)

type Point struct{ X, Y float64 }

// Series is one named polyline.
type Series struct {
	Name   string
	Points []Point
}

var palette = []string{"#00ff9f", "#ff2a6d", "#05d9e8", "#f9c80e", "#d1f7ff", "#ff8c42"}

// SeriesToSVG plots every series on shared axes. Series with fewer than two
// points are skipped; the result is empty when nothing is left to draw.
func SeriesToSVG(series []Series, width, height int) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	drawn := 0
	for _, s := range series {
		if len(s.Points) < 2 {
			continue
		}
		drawn++
		for _, p := range s.Points {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if drawn == 0 {
		return ""
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	i := 0
	for _, s := range series {
		if len(s.Points) < 2 {
			continue
		}
		color := palette[i%len(palette)]
		i++

		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, color)
		for j, p := range s.Points {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)
			if j == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*i, color, escape(s.Name))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

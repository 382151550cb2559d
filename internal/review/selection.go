package review

import (
	"sort"
	"strings"
)

// Rect is an axis-aligned box on the rendered document surface, in surface
// coordinates with Y growing downward.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Intersects reports whether two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Fragment is one positioned text fragment from the document's layout
// engine, usually a single character or short run.
type Fragment struct {
	Text string `json:"text"`
	Page int    `json:"page"`
	Box  Rect   `json:"box"`
}

// ExtractSelection intersects a drag rectangle against the positioned-text
// layer and reconstructs the covered text fragment-by-fragment: fragments
// are grouped into lines ordered top-to-bottom, then left-to-right within a
// line.
func ExtractSelection(frags []Fragment, sel Rect) string {
	var hit []Fragment
	for _, f := range frags {
		if f.Box.Intersects(sel) {
			hit = append(hit, f)
		}
	}
	if len(hit) == 0 {
		return ""
	}

	sort.SliceStable(hit, func(i, j int) bool {
		if sameLine(hit[i], hit[j]) {
			return hit[i].Box.X < hit[j].Box.X
		}
		return hit[i].Box.Y < hit[j].Box.Y
	})

	var b strings.Builder
	for i, f := range hit {
		if i > 0 && !sameLine(hit[i-1], f) {
			b.WriteString("\n")
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

// sameLine treats fragments whose vertical midpoints fall within half a
// fragment height of each other as one line of text.
func sameLine(a, b Fragment) bool {
	midA := a.Box.Y + a.Box.Height/2
	midB := b.Box.Y + b.Box.Height/2
	tol := (a.Box.Height + b.Box.Height) / 4
	if tol <= 0 {
		tol = 1
	}
	d := midA - midB
	if d < 0 {
		d = -d
	}
	return d <= tol
}

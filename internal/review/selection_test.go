package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	assert.True(t, a.Intersects(Rect{X: 5, Y: 5, Width: 10, Height: 10}))
	assert.True(t, a.Intersects(Rect{X: 2, Y: 2, Width: 2, Height: 2}), "containment counts")
	assert.False(t, a.Intersects(Rect{X: 10, Y: 0, Width: 5, Height: 5}), "touching edges do not overlap")
	assert.False(t, a.Intersects(Rect{X: 20, Y: 20, Width: 5, Height: 5}))
}

func TestExtractSelectionEmpty(t *testing.T) {
	frags := []Fragment{frag("A", 100, 100)}
	assert.Equal(t, "", ExtractSelection(frags, Rect{X: 0, Y: 0, Width: 10, Height: 10}))
	assert.Equal(t, "", ExtractSelection(nil, Rect{X: 0, Y: 0, Width: 10, Height: 10}))
}

func TestExtractSelectionOrdersWithinLine(t *testing.T) {
	// Fragments arrive in layout-engine order, not reading order.
	frags := []Fragment{
		frag("2", 50, 20),
		frag("4", 42, 20),
		frag("V", 26, 20),
		frag("I", 10, 20),
		frag("N", 18, 20),
		frag("-", 34, 20),
	}
	got := ExtractSelection(frags, Rect{X: 0, Y: 0, Width: 200, Height: 100})
	assert.Equal(t, "INV-42", got)
}

func TestExtractSelectionGroupsJaggedBaselines(t *testing.T) {
	// Midpoints within tolerance land on one line even when Y differs a bit.
	frags := []Fragment{
		frag("a", 10, 20),
		frag("b", 18, 23),
		frag("c", 26, 18),
	}
	got := ExtractSelection(frags, Rect{X: 0, Y: 0, Width: 200, Height: 100})
	assert.Equal(t, "abc", got)
}

func TestExtractSelectionSeparatesLines(t *testing.T) {
	frags := []Fragment{
		frag("c", 10, 60),
		frag("a", 10, 20),
		frag("b", 10, 40),
	}
	got := ExtractSelection(frags, Rect{X: 0, Y: 0, Width: 200, Height: 100})
	assert.Equal(t, "a\nb\nc", got)
}

func TestExtractSelectionClipsToRectangle(t *testing.T) {
	frags := []Fragment{
		frag("in", 10, 20),
		frag("out", 300, 20),
		frag("below", 10, 300),
	}
	got := ExtractSelection(frags, Rect{X: 0, Y: 10, Width: 100, Height: 30})
	assert.Equal(t, "in", got)
}

func TestExtractSelectionZeroHeightFragments(t *testing.T) {
	// Degenerate boxes from the layout engine fall back to a fixed tolerance
	// instead of collapsing every fragment onto one line.
	a := Fragment{Text: "a", Page: 1, Box: Rect{X: 10, Y: 20, Width: 8}}
	b := Fragment{Text: "b", Page: 1, Box: Rect{X: 10, Y: 40, Width: 8}}
	assert.False(t, sameLine(a, b))
}

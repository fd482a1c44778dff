package layout

import (
	"fmt"
	"strings"
)

// Params carries the per-tag knobs that influence an arrangement.
type Params struct {
	// MasterFactor is the share of the usable width given to the master
	// column, already clamped to [0.05, 0.95] by the state layer.
	MasterFactor float64
	// NumMaster is the number of clients placed in the master column. The
	// scrolling layout reuses it as the visible column count.
	NumMaster int
	// ScrollOffset shifts the scrolling ribbon left by whole columns.
	ScrollOffset int
	// TabBarHeight reserves a strip at the top of the area for the tabbed
	// layout's tab row.
	TabBarHeight int
}

// Visibility describes which arranged windows a layout wants shown.
type Visibility int

const (
	// VisibilityAll shows every arranged window.
	VisibilityAll Visibility = iota
	// VisibilityFocused shows only the focused window; the rest stay hidden
	// with their previous geometry.
	VisibilityFocused
	// VisibilityStacked shows every window at the same geometry with the
	// focused one raised on top.
	VisibilityStacked
)

// ArrangeFunc computes geometries for n windows inside the usable area.
// Implementations are pure: identical inputs yield identical output.
type ArrangeFunc func(n int, area Rect, gaps Gaps, p Params) []Rect

// Spec names a layout algorithm together with its bar glyph and the
// visibility policy the engine applies after arranging.
type Spec struct {
	Name       string
	Symbol     string
	Visibility Visibility
	Arrange    ArrangeFunc
}

var registry = []Spec{
	{Name: "tiling", Symbol: "[]=", Visibility: VisibilityAll, Arrange: arrangeTiling},
	{Name: "normie", Symbol: "><>", Visibility: VisibilityFocused, Arrange: arrangeFull},
	{Name: "grid", Symbol: "###", Visibility: VisibilityAll, Arrange: arrangeGrid},
	{Name: "monocle", Symbol: "[M]", Visibility: VisibilityStacked, Arrange: arrangeFull},
	{Name: "tabbed", Symbol: "[T]", Visibility: VisibilityStacked, Arrange: arrangeTabbed},
	{Name: "scrolling", Symbol: "[>>]", Visibility: VisibilityAll, Arrange: arrangeScrolling},
}

// All returns the layout cycle order.
func All() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry)
	return out
}

// ByName resolves a layout by its name, case-insensitively. "floating" is
// accepted as an alias for normie.
func ByName(name string) (Spec, error) {
	n := strings.ToLower(name)
	if n == "floating" {
		n = "normie"
	}
	for _, spec := range registry {
		if spec.Name == n {
			return spec, nil
		}
	}
	return Spec{}, fmt.Errorf("unknown layout %q", name)
}

// Next returns the layout following the named one in cycle order, wrapping
// to the first. Unknown names restart the cycle.
func Next(name string) Spec {
	for i, spec := range registry {
		if spec.Name == name {
			return registry[(i+1)%len(registry)]
		}
	}
	return registry[0]
}

// Assignment pairs a window handle with its computed geometry.
type Assignment struct {
	Window uint32
	Rect   Rect
}

// Compute arranges the ordered tiled windows of a tag inside the usable
// area. Floating and fullscreen windows must be filtered out by the caller.
func Compute(windows []uint32, area Rect, spec Spec, gaps Gaps, p Params) []Assignment {
	if len(windows) == 0 || spec.Arrange == nil {
		return nil
	}
	rects := spec.Arrange(len(windows), area, gaps, p)
	if len(rects) != len(windows) {
		return nil
	}
	out := make([]Assignment, len(windows))
	for i, w := range windows {
		out[i] = Assignment{Window: w, Rect: rects[i]}
	}
	return out
}

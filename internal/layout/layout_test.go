package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTilingMasterStackSplit(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	p := Params{MasterFactor: 0.55, NumMaster: 1}
	rects := arrangeTiling(3, area, Gaps{}, p)
	if len(rects) != 3 {
		t.Fatalf("expected 3 rects, got %d", len(rects))
	}
	want := []Rect{
		{X: 0, Y: 0, Width: 1056, Height: 1080},
		{X: 1056, Y: 0, Width: 864, Height: 540},
		{X: 1056, Y: 540, Width: 864, Height: 540},
	}
	if diff := cmp.Diff(want, rects); diff != "" {
		t.Fatalf("unexpected tiling geometry (-want +got):\n%s", diff)
	}
}

func TestTilingZeroClients(t *testing.T) {
	if rects := arrangeTiling(0, Rect{Width: 100, Height: 100}, Gaps{}, Params{}); rects != nil {
		t.Fatalf("expected no rects for zero clients, got %v", rects)
	}
}

func TestTilingDeterministic(t *testing.T) {
	area := Rect{Width: 1366, Height: 768}
	gaps := Gaps{Enabled: true, InnerX: 5, InnerY: 5, OuterX: 10, OuterY: 10}
	p := Params{MasterFactor: 0.6, NumMaster: 2}
	first := arrangeTiling(5, area, gaps, p)
	second := arrangeTiling(5, area, gaps, p)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("arrangement is not deterministic:\n%s", diff)
	}
}

func TestTilingRectsNeverOverlap(t *testing.T) {
	area := Rect{Width: 1920, Height: 1080}
	gaps := Gaps{Enabled: true, InnerX: 4, InnerY: 4, OuterX: 8, OuterY: 8}
	for n := 1; n <= 7; n++ {
		rects := arrangeTiling(n, area, gaps, Params{MasterFactor: 0.55, NumMaster: 2})
		for i := range rects {
			for j := i + 1; j < len(rects); j++ {
				if rects[i].Overlaps(rects[j]) {
					t.Fatalf("n=%d: rect %d %+v overlaps rect %d %+v", n, i, rects[i], j, rects[j])
				}
			}
		}
	}
}

func TestTilingFillsUsableArea(t *testing.T) {
	area := Rect{Width: 1920, Height: 1080}
	rects := arrangeTiling(4, area, Gaps{}, Params{MasterFactor: 0.5, NumMaster: 1})
	var total int
	for _, r := range rects {
		total += r.Width * r.Height
	}
	if total != area.Width*area.Height {
		t.Fatalf("tiled area %d does not fill usable area %d", total, area.Width*area.Height)
	}
}

func TestSmartGapsSuppressOuterForSingleWindow(t *testing.T) {
	area := Rect{Width: 800, Height: 600}
	gaps := Gaps{Enabled: true, Smart: true, InnerX: 5, InnerY: 5, OuterX: 10, OuterY: 10}
	rects := arrangeTiling(1, area, gaps, Params{MasterFactor: 0.55, NumMaster: 1})
	want := Rect{X: 0, Y: 0, Width: 800, Height: 600}
	if rects[0] != want {
		t.Fatalf("expected full-bleed rect %+v, got %+v", want, rects[0])
	}

	gaps.Smart = false
	rects = arrangeTiling(1, area, gaps, Params{MasterFactor: 0.55, NumMaster: 1})
	if rects[0].X != 10 || rects[0].Width != 780 {
		t.Fatalf("expected outer gap to apply without smart gaps, got %+v", rects[0])
	}
}

func TestGapsDisabledZeroesEverything(t *testing.T) {
	gaps := Gaps{Enabled: false, InnerX: 5, InnerY: 5, OuterX: 10, OuterY: 10}
	rects := arrangeTiling(2, Rect{Width: 1000, Height: 500}, gaps, Params{MasterFactor: 0.5, NumMaster: 1})
	if rects[0].X != 0 || rects[0].Y != 0 {
		t.Fatalf("expected no gap offset when gaps disabled, got %+v", rects[0])
	}
	if rects[0].Width+rects[1].Width != 1000 {
		t.Fatalf("expected columns to span full width, got %d", rects[0].Width+rects[1].Width)
	}
}

func TestScrollingColumnsAndOffset(t *testing.T) {
	area := Rect{Width: 1000, Height: 600}
	p := Params{NumMaster: 2}
	rects := arrangeScrolling(4, area, Gaps{}, p)
	if len(rects) != 4 {
		t.Fatalf("expected 4 rects, got %d", len(rects))
	}
	if rects[0].Width != 500 {
		t.Fatalf("expected 500px columns, got %d", rects[0].Width)
	}
	if rects[1].X != 500 || rects[2].X != 1000 {
		t.Fatalf("expected ribbon to extend past the viewport, got %+v", rects)
	}

	p.ScrollOffset = 1
	shifted := arrangeScrolling(4, area, Gaps{}, p)
	if shifted[1].X != 0 || shifted[2].X != 500 {
		t.Fatalf("expected offset to slide columns left, got %+v", shifted)
	}
	for i := range shifted {
		for j := i + 1; j < len(shifted); j++ {
			if shifted[i].Overlaps(shifted[j]) {
				t.Fatalf("scrolling rects %d and %d overlap", i, j)
			}
		}
	}
}

func TestScrollingDefaultsToTwoVisibleColumns(t *testing.T) {
	rects := arrangeScrolling(3, Rect{Width: 900, Height: 500}, Gaps{}, Params{})
	if rects[0].Width != 450 {
		t.Fatalf("expected default two-column split, got width %d", rects[0].Width)
	}
}

func TestGridNearSquare(t *testing.T) {
	area := Rect{Width: 1200, Height: 800}
	rects := arrangeGrid(4, area, Gaps{}, Params{})
	if len(rects) != 4 {
		t.Fatalf("expected 4 rects, got %d", len(rects))
	}
	for i := range rects {
		if rects[i].Width != 600 || rects[i].Height != 400 {
			t.Fatalf("expected 600x400 cells, got %+v", rects[i])
		}
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Overlaps(rects[j]) {
				t.Fatalf("grid rects %d and %d overlap", i, j)
			}
		}
	}
}

func TestFullAreaLayouts(t *testing.T) {
	area := Rect{X: 100, Y: 50, Width: 800, Height: 600}
	rects := arrangeFull(3, area, Gaps{}, Params{})
	for _, r := range rects {
		if r != (Rect{X: 100, Y: 50, Width: 800, Height: 600}) {
			t.Fatalf("expected every window to fill the area, got %+v", r)
		}
	}

	tabbed := arrangeTabbed(2, area, Gaps{}, Params{TabBarHeight: 20})
	if tabbed[0].Y != 70 || tabbed[0].Height != 580 {
		t.Fatalf("expected tab bar strip to be reserved, got %+v", tabbed[0])
	}
}

func TestByNameAndCycle(t *testing.T) {
	spec, err := ByName("Tiling")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if spec.Symbol != "[]=" {
		t.Fatalf("unexpected tiling symbol %q", spec.Symbol)
	}
	if _, err := ByName("spiral"); err == nil {
		t.Fatalf("expected error for unknown layout")
	}
	if next := Next("scrolling"); next.Name != "tiling" {
		t.Fatalf("expected cycle to wrap to tiling, got %s", next.Name)
	}
	alias, err := ByName("floating")
	if err != nil || alias.Name != "normie" {
		t.Fatalf("expected floating alias to resolve to normie, got %v %v", alias.Name, err)
	}
}

func TestComputePairsWindows(t *testing.T) {
	spec, _ := ByName("tiling")
	got := Compute([]uint32{11, 22}, Rect{Width: 1000, Height: 500}, spec, Gaps{}, Params{MasterFactor: 0.5, NumMaster: 1})
	if len(got) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(got))
	}
	if got[0].Window != 11 || got[1].Window != 22 {
		t.Fatalf("expected window order preserved, got %+v", got)
	}
}

package annotation

import (
	"sort"

	"github.com/sonicvg/svcore/internal/event"
)

// PathPoint is a pair (srcFrame, dstFrame) in a piecewise-linear
// mapping between two timelines.
type PathPoint struct {
	SrcFrame event.Frame
	DstFrame event.Frame
}

// Path is a sparse, ordered set of PathPoints with both coordinates
// monotonically non-decreasing, backed directly by an ordered slice
// rather than an EventSeries (spec.md §4.B: "Path — ... a direct
// ordered container").
type Path struct {
	*Base
	points []PathPoint
}

// NewPath constructs an empty Path model at sampleRate.
func NewPath(sampleRate int) *Path {
	return &Path{Base: NewBase(sampleRate)}
}

// Add inserts p, keeping points ordered by SrcFrame. Points with an
// equal SrcFrame to an existing point replace it, preserving the
// monotonic-non-decreasing invariant on both coordinates.
func (p *Path) Add(pt PathPoint) {
	idx := sort.Search(len(p.points), func(i int) bool { return p.points[i].SrcFrame >= pt.SrcFrame })
	if idx < len(p.points) && p.points[idx].SrcFrame == pt.SrcFrame {
		p.points[idx] = pt
	} else {
		p.points = append(p.points, PathPoint{})
		copy(p.points[idx+1:], p.points[idx:])
		p.points[idx] = pt
	}
	p.SetExtent(pt.SrcFrame, pt.SrcFrame)
}

// Points returns a copy of the ordered point sequence.
func (p *Path) Points() []PathPoint {
	out := make([]PathPoint, len(p.points))
	copy(out, p.points)
	return out
}

// Count returns the number of path points.
func (p *Path) Count() int { return len(p.points) }

// FloorIndex returns the index of the greatest point whose SrcFrame is
// <= f, or -1 if every point's SrcFrame is greater than f.
func (p *Path) FloorIndex(f event.Frame) int {
	i := sort.Search(len(p.points), func(i int) bool { return p.points[i].SrcFrame > f }) - 1
	return i
}

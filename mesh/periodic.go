package mesh

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// LinkPeriodic pairs the boundary faces of two markers that are images of
// each other under a translation along the named axis ("x" or "y"). Face
// twins are found by matching midpoints in the complementary coordinate.
// After linking, the right cell of each twin points at the interior cell
// across the wrap and PeriodicPartner holds the twin face, so the residual
// loop needs no ghost rule for these faces.
func (m *Mesh) LinkPeriodic(marker1, marker2 int, axis string) error {
	var (
		comp int // coordinate that stays fixed under the translation
	)
	switch strings.ToLower(axis) {
	case "x":
		comp = 1
	case "y":
		comp = 0
	default:
		return fmt.Errorf("periodic axis must be x or y, got %q", axis)
	}
	var listA, listB []int
	for f := 0; f < m.NumBFaces; f++ {
		switch m.FaceMarker[f] {
		case marker1:
			listA = append(listA, f)
		case marker2:
			listB = append(listB, f)
		}
	}
	if len(listA) == 0 || len(listB) == 0 {
		return fmt.Errorf("periodic markers %d, %d not present on the boundary", marker1, marker2)
	}
	if len(listA) != len(listB) {
		return fmt.Errorf("periodic markers %d, %d have %d and %d faces",
			marker1, marker2, len(listA), len(listB))
	}
	key := func(f int) float64 {
		x, y := m.FaceMidpoint(f)
		if comp == 0 {
			return x
		}
		return y
	}
	sort.Slice(listA, func(i, j int) bool { return key(listA[i]) < key(listA[j]) })
	sort.Slice(listB, func(i, j int) bool { return key(listB[i]) < key(listB[j]) })
	for i := range listA {
		var (
			fa, fb = listA[i], listB[i]
			tol    = 0.25 * math.Min(m.FaceLength[fa], m.FaceLength[fb])
		)
		if math.Abs(key(fa)-key(fb)) > tol {
			return fmt.Errorf("periodic faces do not line up along %s near %g", axis, key(fa))
		}
		m.PeriodicPartner[fa] = fb
		m.PeriodicPartner[fb] = fa
		m.FaceCells[fa][1] = m.FaceCells[fb][0]
		m.FaceCells[fb][1] = m.FaceCells[fa][0]
	}
	return nil
}

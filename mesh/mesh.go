package mesh

import "fmt"

// Mesh is the read-only unstructured mesh view the discretization works
// from. Cells are triangles or quadrilaterals with counterclockwise node
// ordering. Faces are stored boundary first: indices [0, NumBFaces) are
// boundary faces, the rest are interior. Face normals are unit vectors
// pointing from the left cell to the right cell; for a boundary face the
// right "cell" is the ghost slot NumCells + face index.
type Mesh struct {
	NumNodes  int
	NumCells  int
	NumFaces  int
	NumBFaces int

	Nodes     [][2]float64
	CellNodes [][]int // 3 or 4 nodes, counterclockwise
	CellFaces [][]int // same local ordering as the cell edges
	Area      []float64
	Center    [][2]float64 // node average, matching the reconstruction origin

	FaceCells  [][2]int // left, right
	FaceNodes  [][2]int
	Normal     [][2]float64
	FaceLength []float64
	FaceMarker []int // boundary marker, -1 on interior faces

	// PeriodicPartner maps a boundary face to its twin boundary face once
	// periodic markers are linked, -1 otherwise. For linked faces
	// FaceCells[f][1] holds the partner interior cell instead of the ghost
	// slot.
	PeriodicPartner []int
}

// CellNeighbor returns the cell on the other side of the k-th face of cell
// e, which is a ghost slot (>= NumCells) on an unlinked boundary face.
func (m *Mesh) CellNeighbor(e, k int) int {
	var (
		f  = m.CellFaces[e][k]
		lr = m.FaceCells[f]
	)
	if lr[0] == e {
		return lr[1]
	}
	return lr[0]
}

// IsBoundaryFace
func (m *Mesh) IsBoundaryFace(f int) bool {
	return f < m.NumBFaces
}

// FaceMidpoint returns the midpoint of face f.
func (m *Mesh) FaceMidpoint(f int) (x, y float64) {
	var (
		p1 = m.Nodes[m.FaceNodes[f][0]]
		p2 = m.Nodes[m.FaceNodes[f][1]]
	)
	x, y = 0.5*(p1[0]+p2[0]), 0.5*(p1[1]+p2[1])
	return
}

// GaussPoint returns the i-th of ng quadrature points of face f, placed
// uniformly strictly inside the segment at parameter (i+1)/(ng+1).
func (m *Mesh) GaussPoint(f, i, ng int) (x, y float64) {
	var (
		p1 = m.Nodes[m.FaceNodes[f][0]]
		p2 = m.Nodes[m.FaceNodes[f][1]]
		t  = float64(i+1) / float64(ng+1)
	)
	x = p1[0] + t*(p2[0]-p1[0])
	y = p1[1] + t*(p2[1]-p1[1])
	return
}

func (m *Mesh) PrintStatistics() {
	var (
		ntri, nquad int
	)
	for _, cn := range m.CellNodes {
		if len(cn) == 3 {
			ntri++
		} else {
			nquad++
		}
	}
	fmt.Printf("Mesh: %d nodes, %d cells (%d tri, %d quad), %d faces of which %d boundary\n",
		m.NumNodes, m.NumCells, ntri, nquad, m.NumFaces, m.NumBFaces)
}

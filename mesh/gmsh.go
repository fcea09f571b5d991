package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Gmsh v2 ASCII element types used by the 2D solver
const (
	gmshLine = 1
	gmshTri  = 2
	gmshQuad = 3
)

type boundarySpec struct {
	n1, n2, marker int
}

// ReadGmsh reads a Gmsh MSH file format version 2.2 and builds the face
// topology.
func ReadGmsh(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open mesh file: %w", err)
	}
	defer file.Close()
	return ReadFrom(file)
}

// ReadFrom reads the Gmsh v2 sections from r. Only 2D nodes and elements
// are used: 2-node lines carry boundary markers, triangles and quads become
// cells. Everything else is skipped.
func ReadFrom(r io.Reader) (*Mesh, error) {
	var (
		scanner = bufio.NewScanner(r)
		m       = &Mesh{}
		bspecs  []boundarySpec
		nodeIdx = make(map[int]int)
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "$MeshFormat":
			if err := readMeshFormat(scanner); err != nil {
				return nil, err
			}
		case "$Nodes":
			if err := readNodes(scanner, m, nodeIdx); err != nil {
				return nil, err
			}
		case "$Elements":
			var err error
			if bspecs, err = readElements(scanner, m, nodeIdx); err != nil {
				return nil, err
			}
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				endMarker := "$End" + line[1:]
				for scanner.Scan() {
					if strings.TrimSpace(scanner.Text()) == endMarker {
						break
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	if m.NumCells == 0 {
		return nil, fmt.Errorf("mesh has no 2D cells")
	}
	if err := buildTopology(m, bspecs); err != nil {
		return nil, err
	}
	return m, nil
}

func readMeshFormat(scanner *bufio.Scanner) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}
	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}
	if !strings.HasPrefix(parts[0], "2.") {
		return fmt.Errorf("unsupported msh format version %s, need 2.x", parts[0])
	}
	if fileType, _ := strconv.Atoi(parts[1]); fileType == 1 {
		return fmt.Errorf("binary msh files are not supported")
	}
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndMeshFormat" {
			break
		}
	}
	return nil
}

func readNodes(scanner *bufio.Scanner, m *Mesh, nodeIdx map[int]int) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}
	numNodes, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	m.Nodes = make([][2]float64, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}
		nodeID, _ := strconv.Atoi(parts[0])
		x, _ := strconv.ParseFloat(parts[1], 64)
		y, _ := strconv.ParseFloat(parts[2], 64)
		nodeIdx[nodeID] = len(m.Nodes)
		m.Nodes = append(m.Nodes, [2]float64{x, y})
	}
	m.NumNodes = len(m.Nodes)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndNodes" {
			break
		}
	}
	return nil
}

func readElements(scanner *bufio.Scanner, m *Mesh, nodeIdx map[int]int) ([]boundarySpec, error) {
	if !scanner.Scan() {
		return nil, fmt.Errorf("unexpected EOF in Elements")
	}
	var (
		bspecs []boundarySpec
	)
	numElements, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading elements")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 5 {
			return nil, fmt.Errorf("invalid element line: %s", scanner.Text())
		}
		elemType, _ := strconv.Atoi(parts[1])
		numTags, _ := strconv.Atoi(parts[2])
		if len(parts) < 3+numTags {
			return nil, fmt.Errorf("invalid element tags: %s", scanner.Text())
		}
		marker := 0
		if numTags > 0 {
			marker, _ = strconv.Atoi(parts[3]) // physical tag
		}
		nodeStrs := parts[3+numTags:]
		nodes, err := mapNodes(nodeStrs, nodeIdx)
		if err != nil {
			return nil, err
		}
		switch elemType {
		case gmshLine:
			if len(nodes) < 2 {
				return nil, fmt.Errorf("boundary line with %d nodes", len(nodes))
			}
			bspecs = append(bspecs, boundarySpec{nodes[0], nodes[1], marker})
		case gmshTri, gmshQuad:
			want := 3
			if elemType == gmshQuad {
				want = 4
			}
			if len(nodes) < want {
				return nil, fmt.Errorf("cell with %d of %d nodes", len(nodes), want)
			}
			m.CellNodes = append(m.CellNodes, nodes[:want])
		default:
			// points, higher order elements and 3D cells are ignored
		}
	}
	m.NumCells = len(m.CellNodes)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$EndElements" {
			break
		}
	}
	return bspecs, nil
}

func mapNodes(strs []string, nodeIdx map[int]int) ([]int, error) {
	nodes := make([]int, len(strs))
	for i, s := range strs {
		id, _ := strconv.Atoi(s)
		idx, ok := nodeIdx[id]
		if !ok {
			return nil, fmt.Errorf("element references unknown node %d", id)
		}
		nodes[i] = idx
	}
	return nodes, nil
}

type protoFace struct {
	n1, n2      int // left cell traversal order, so (dy, -dx) points outward
	left, right int
	marker      int
}

// buildTopology orients cells counterclockwise, extracts unique faces with
// boundary faces first, matches boundary markers, and fills in the face
// geometry.
func buildTopology(m *Mesh, bspecs []boundarySpec) error {
	var (
		protos    []protoFace
		faceOf    = make(map[[2]int]int)
		cellProto = make([][]int, m.NumCells)
	)
	m.Area = make([]float64, m.NumCells)
	m.Center = make([][2]float64, m.NumCells)
	for e, cn := range m.CellNodes {
		// normalize to counterclockwise and record area and centroid
		a := signedArea(m.Nodes, cn)
		if a < 0 {
			reverse(cn)
			a = -a
		}
		if a == 0 {
			return fmt.Errorf("cell %d is degenerate", e)
		}
		m.Area[e] = a
		var cx, cy float64
		for _, p := range cn {
			cx += m.Nodes[p][0]
			cy += m.Nodes[p][1]
		}
		m.Center[e] = [2]float64{cx / float64(len(cn)), cy / float64(len(cn))}

		cellProto[e] = make([]int, len(cn))
		for k := range cn {
			n1, n2 := cn[k], cn[(k+1)%len(cn)]
			key := sortedPair(n1, n2)
			if fi, ok := faceOf[key]; ok {
				if protos[fi].right >= 0 {
					return fmt.Errorf("edge %d-%d shared by more than two cells", n1, n2)
				}
				protos[fi].right = e
				cellProto[e][k] = fi
			} else {
				faceOf[key] = len(protos)
				cellProto[e][k] = len(protos)
				protos = append(protos, protoFace{n1: n1, n2: n2, left: e, right: -1, marker: -1})
			}
		}
	}
	// attach markers from the boundary lines in the file
	for _, bs := range bspecs {
		fi, ok := faceOf[sortedPair(bs.n1, bs.n2)]
		if !ok {
			return fmt.Errorf("boundary line %d-%d matches no cell edge", bs.n1, bs.n2)
		}
		if protos[fi].right >= 0 {
			return fmt.Errorf("boundary line %d-%d lies on an interior edge", bs.n1, bs.n2)
		}
		if protos[fi].marker >= 0 {
			return fmt.Errorf("boundary edge %d-%d marked twice", bs.n1, bs.n2)
		}
		protos[fi].marker = bs.marker
	}
	// boundary faces first, ordered as the boundary lines appeared
	var (
		finalOf = make([]int, len(protos))
		order   = make([]int, 0, len(protos))
	)
	for i := range finalOf {
		finalOf[i] = -1
	}
	for _, bs := range bspecs {
		fi := faceOf[sortedPair(bs.n1, bs.n2)]
		if finalOf[fi] < 0 {
			finalOf[fi] = len(order)
			order = append(order, fi)
		}
	}
	m.NumBFaces = len(order)
	unmarked := 0
	for fi, p := range protos {
		if p.right < 0 && p.marker < 0 {
			unmarked++
		}
		if finalOf[fi] < 0 && p.right >= 0 {
			finalOf[fi] = len(order)
			order = append(order, fi)
		}
	}
	if unmarked > 0 {
		return fmt.Errorf("%d boundary edges carry no marker", unmarked)
	}
	m.NumFaces = len(order)

	m.FaceCells = make([][2]int, m.NumFaces)
	m.FaceNodes = make([][2]int, m.NumFaces)
	m.Normal = make([][2]float64, m.NumFaces)
	m.FaceLength = make([]float64, m.NumFaces)
	m.FaceMarker = make([]int, m.NumFaces)
	m.PeriodicPartner = make([]int, m.NumBFaces)
	for f, fi := range order {
		p := protos[fi]
		right := p.right
		if right < 0 {
			right = m.NumCells + f // ghost slot
		}
		m.FaceCells[f] = [2]int{p.left, right}
		m.FaceNodes[f] = [2]int{p.n1, p.n2}
		m.FaceMarker[f] = p.marker
		var (
			dx = m.Nodes[p.n2][0] - m.Nodes[p.n1][0]
			dy = m.Nodes[p.n2][1] - m.Nodes[p.n1][1]
			l  = math.Hypot(dx, dy)
		)
		m.FaceLength[f] = l
		m.Normal[f] = [2]float64{dy / l, -dx / l}
	}
	for f := range m.PeriodicPartner {
		m.PeriodicPartner[f] = -1
	}
	m.CellFaces = make([][]int, m.NumCells)
	for e := range cellProto {
		m.CellFaces[e] = make([]int, len(cellProto[e]))
		for k, fi := range cellProto[e] {
			m.CellFaces[e][k] = finalOf[fi]
		}
	}
	return nil
}

func signedArea(nodes [][2]float64, cn []int) (a float64) {
	for k := range cn {
		p, q := nodes[cn[k]], nodes[cn[(k+1)%len(cn)]]
		a += p[0]*q[1] - q[0]*p[1]
	}
	a *= 0.5
	return
}

func sortedPair(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

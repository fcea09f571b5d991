/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pradeep-pyro/triangle"
	"github.com/spf13/cobra"

	"github.com/leshihua/FVENS/mesh"
)

// meshgenCmd represents the meshgen command
var meshgenCmd = &cobra.Command{
	Use:   "meshgen output-file",
	Short: "Generate a test mesh in Gmsh v2 format",
	Long: `
Generates one of the built-in test meshes and writes it as a Gmsh v2 file:

  quad      structured quads on the unit square, markers 1-4
            (bottom, right, top, left)
  tri       the quad grid with every cell split along its diagonal
  delaunay  an unstructured Delaunay triangulation of the unit square
  annulus   the quarter annulus of the isentropic vortex case,
            markers 1 inner wall, 2 outer wall, 3 inflow, 4 outflow

fvens meshgen --kind annulus --nx 40 --ny 80 vortex.msh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			kind, _ = cmd.Flags().GetString("kind")
			nx, _   = cmd.Flags().GetInt("nx")
			ny, _   = cmd.Flags().GetInt("ny")
		)
		if ny <= 0 {
			ny = nx
		}
		return runMeshgen(args[0], kind, nx, ny)
	},
}

func init() {
	rootCmd.AddCommand(meshgenCmd)
	meshgenCmd.Flags().String("kind", "quad", "quad, tri, delaunay or annulus")
	meshgenCmd.Flags().Int("nx", 20, "cells in the first direction")
	meshgenCmd.Flags().Int("ny", 0, "cells in the second direction (defaults to nx)")
}

func runMeshgen(outfile, kind string, nx, ny int) error {
	var text string
	switch kind {
	case "quad":
		text = mesh.RectangleQuad(nx, ny, 0., 0., 1., 1., [4]int{1, 2, 3, 4})
	case "tri":
		text = mesh.RectangleTri(nx, ny, 0., 0., 1., 1., [4]int{1, 2, 3, 4})
	case "delaunay":
		text = delaunaySquare(nx)
	case "annulus":
		text = mesh.VortexAnnulus(nx, ny, 1., 1.384, 1, 2, 3, 4)
	default:
		return fmt.Errorf("unknown mesh kind %q", kind)
	}
	if err := os.WriteFile(outfile, []byte(text), 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s mesh to %s\n", kind, outfile)
	return nil
}

// delaunaySquare triangulates the unit square from nx+1 points per side
// plus jittered interior seeds, then recovers the side markers
// geometrically from the segment midpoints.
func delaunaySquare(nx int) string {
	var (
		pts  [][2]float64
		segs [][2]int32
		h    = 1. / float64(nx)
	)
	side := func(x0, y0, dx, dy float64) {
		first := int32(len(pts))
		for i := 0; i < nx; i++ {
			t := float64(i) * h
			pts = append(pts, [2]float64{x0 + t*dx, y0 + t*dy})
		}
		for i := int32(0); i < int32(nx); i++ {
			a := first + i
			b := a + 1
			if i == int32(nx)-1 {
				b = (first + int32(nx)) % int32(4*nx)
			}
			segs = append(segs, [2]int32{a, b})
		}
	}
	side(0., 0., 1., 0.)
	side(1., 0., 0., 1.)
	side(1., 1., -1., 0.)
	side(0., 1., 0., -1.)
	for j := 1; j < nx; j++ {
		for i := 1; i < nx; i++ {
			// deterministic jitter keeps the triangulation irregular
			var (
				jx = 0.28 * h * math.Sin(17.*float64(i*nx+j))
				jy = 0.28 * h * math.Cos(23.*float64(j*nx+i))
			)
			pts = append(pts, [2]float64{float64(i)*h + jx, float64(j)*h + jy})
		}
	}

	verts, faces := triangle.ConstrainedDelaunay(pts, segs, nil)
	var (
		nodes = make([][2]float64, len(verts))
		cells = make([][]int, len(faces))
	)
	copy(nodes, verts)
	for i, f := range faces {
		cells[i] = []int{int(f[0]), int(f[1]), int(f[2])}
	}

	// A boundary edge is one whose midpoint lies on a side of the square.
	edgeCount := map[[2]int]int{}
	key := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}
	for _, c := range cells {
		for k := 0; k < 3; k++ {
			edgeCount[key(c[k], c[(k+1)%3])]++
		}
	}
	var blines [][3]int
	for e, cnt := range edgeCount {
		if cnt != 1 {
			continue
		}
		var (
			mx = 0.5 * (nodes[e[0]][0] + nodes[e[1]][0])
			my = 0.5 * (nodes[e[0]][1] + nodes[e[1]][1])
		)
		marker := 0
		switch {
		case my < 1.e-10:
			marker = 1
		case mx > 1.-1.e-10:
			marker = 2
		case my > 1.-1.e-10:
			marker = 3
		case mx < 1.e-10:
			marker = 4
		}
		blines = append(blines, [3]int{e[0], e[1], marker})
	}
	var sb strings.Builder
	if err := mesh.WriteGmsh(&sb, nodes, cells, blines); err != nil {
		panic(err)
	}
	return sb.String()
}

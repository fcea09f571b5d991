package output

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/leshihua/FVENS/mesh"
)

// VTK cell type ids.
const (
	vtkTriangle = 5
	vtkQuad     = 9
)

// WriteVTU writes the mesh and the nodal fields as a serial VTU
// (UnstructuredGrid XML) file with point data density, Mach, pressure and
// velocity.
func WriteVTU(filename string, m *mesh.Mesh, pf *Fields) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot open solution file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	writeVTUBody(w, m, pf)
	if err = w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	fmt.Printf("Wrote solution to %s\n", filename)
	return nil
}

func writeVTUBody(w io.Writer, m *mesh.Mesh, pf *Fields) {
	fmt.Fprintf(w, "<?xml version=\"1.0\"?>\n")
	fmt.Fprintf(w, "<VTKFile type=\"UnstructuredGrid\" version=\"0.1\" byte_order=\"LittleEndian\">\n")
	fmt.Fprintf(w, "<UnstructuredGrid>\n")
	fmt.Fprintf(w, "<Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n", m.NumNodes, m.NumCells)

	fmt.Fprintf(w, "<PointData Scalars=\"density\" Vectors=\"velocity\">\n")
	writeDataArray(w, "density", 1, pf.Density, nil)
	writeDataArray(w, "Mach_number", 1, pf.Mach, nil)
	writeDataArray(w, "pressure", 1, pf.Pressure, nil)
	writeDataArray(w, "velocity", 3, pf.VelX, pf.VelY)
	fmt.Fprintf(w, "</PointData>\n")

	fmt.Fprintf(w, "<Points>\n<DataArray type=\"Float64\" NumberOfComponents=\"3\" format=\"ascii\">\n")
	for _, nd := range m.Nodes {
		fmt.Fprintf(w, "%.16g %.16g 0\n", nd[0], nd[1])
	}
	fmt.Fprintf(w, "</DataArray>\n</Points>\n")

	fmt.Fprintf(w, "<Cells>\n<DataArray type=\"Int32\" Name=\"connectivity\" format=\"ascii\">\n")
	for _, cn := range m.CellNodes {
		for _, nd := range cn {
			fmt.Fprintf(w, "%d ", nd)
		}
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, "</DataArray>\n<DataArray type=\"Int32\" Name=\"offsets\" format=\"ascii\">\n")
	off := 0
	for _, cn := range m.CellNodes {
		off += len(cn)
		fmt.Fprintf(w, "%d\n", off)
	}
	fmt.Fprintf(w, "</DataArray>\n<DataArray type=\"UInt8\" Name=\"types\" format=\"ascii\">\n")
	for _, cn := range m.CellNodes {
		if len(cn) == 3 {
			fmt.Fprintf(w, "%d\n", vtkTriangle)
		} else {
			fmt.Fprintf(w, "%d\n", vtkQuad)
		}
	}
	fmt.Fprintf(w, "</DataArray>\n</Cells>\n")
	fmt.Fprintf(w, "</Piece>\n</UnstructuredGrid>\n</VTKFile>\n")
}

func writeDataArray(w io.Writer, name string, ncomp int, x, y []float64) {
	fmt.Fprintf(w, "<DataArray type=\"Float64\" Name=\"%s\" NumberOfComponents=\"%d\" format=\"ascii\">\n",
		name, ncomp)
	for i := range x {
		if ncomp == 1 {
			fmt.Fprintf(w, "%.16g\n", x[i])
		} else {
			fmt.Fprintf(w, "%.16g %.16g 0\n", x[i], y[i])
		}
	}
	fmt.Fprintf(w, "</DataArray>\n")
}

// WriteLegacyVTK writes the same fields in the legacy ASCII VTK format, which
// some plotting tools still prefer.
func WriteLegacyVTK(filename string, m *mesh.Mesh, pf *Fields) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot open solution file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "# vtk DataFile Version 3.0\nFVENS output\nASCII\nDATASET UNSTRUCTURED_GRID\n")
	fmt.Fprintf(w, "POINTS %d double\n", m.NumNodes)
	for _, nd := range m.Nodes {
		fmt.Fprintf(w, "%.16g %.16g 0\n", nd[0], nd[1])
	}
	size := 0
	for _, cn := range m.CellNodes {
		size += len(cn) + 1
	}
	fmt.Fprintf(w, "CELLS %d %d\n", m.NumCells, size)
	for _, cn := range m.CellNodes {
		fmt.Fprintf(w, "%d", len(cn))
		for _, nd := range cn {
			fmt.Fprintf(w, " %d", nd)
		}
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, "CELL_TYPES %d\n", m.NumCells)
	for _, cn := range m.CellNodes {
		if len(cn) == 3 {
			fmt.Fprintf(w, "%d\n", vtkTriangle)
		} else {
			fmt.Fprintf(w, "%d\n", vtkQuad)
		}
	}
	fmt.Fprintf(w, "POINT_DATA %d\n", m.NumNodes)
	for _, fld := range []struct {
		name string
		data []float64
	}{{"density", pf.Density}, {"Mach_number", pf.Mach}, {"pressure", pf.Pressure}} {
		fmt.Fprintf(w, "SCALARS %s double 1\nLOOKUP_TABLE default\n", fld.name)
		for _, v := range fld.data {
			fmt.Fprintf(w, "%.16g\n", v)
		}
	}
	fmt.Fprintf(w, "VECTORS velocity double\n")
	for i := range pf.VelX {
		fmt.Fprintf(w, "%.16g %.16g 0\n", pf.VelX[i], pf.VelY[i])
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

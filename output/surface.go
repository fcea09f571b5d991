package output

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
)

// SurfaceCoeffs are the integrated aerodynamic coefficients of one boundary
// marker, referenced to unit chord and the free stream dynamic pressure.
type SurfaceCoeffs struct {
	Marker int
	CL, CD float64
}

// WriteSurfaceCoefficients writes one `<prefix>-<marker>.dat` file per output
// marker with the pressure coefficient distribution and, for viscous flow, a
// cell-center skin friction estimate, then the integrated CL and CD. The face
// normal points out of the fluid, so the pressure force on the body is
// ∮ p n dl directly.
func WriteSurfaceCoefficients(prefix string, m *mesh.Mesh, fs *physics.FreeStream,
	u []float64, markers []int, viscous bool) (coeffs []SurfaceCoeffs, err error) {
	for _, marker := range markers {
		sc, werr := writeMarker(prefix, m, fs, u, marker, viscous)
		if werr != nil {
			return coeffs, werr
		}
		coeffs = append(coeffs, sc)
	}
	return coeffs, nil
}

func writeMarker(prefix string, m *mesh.Mesh, fs *physics.FreeStream,
	u []float64, marker int, viscous bool) (sc SurfaceCoeffs, err error) {
	var (
		nv       = physics.NVars
		filename = fmt.Sprintf("%s-%d.dat", prefix, marker)
		fx, fy   float64
		found    bool
	)
	f, err := os.Create(filename)
	if err != nil {
		return sc, fmt.Errorf("cannot open surface file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "#  x_mid         y_mid         Cp            Cf\n")

	for bf := 0; bf < m.NumBFaces; bf++ {
		if m.FaceMarker[bf] != marker || m.PeriodicPartner[bf] >= 0 {
			continue
		}
		found = true
		var (
			l      = m.FaceCells[bf][0]
			n      = m.Normal[bf]
			length = m.FaceLength[bf]
			ul     = u[l*nv : l*nv+nv]
			p      = fs.Pressure(ul)
			cp     = 2. * (p - fs.Pinf) // rhoinf = vinf = 1
			cf     float64
			mx, my = m.FaceMidpoint(bf)
		)
		fx += p * n[0] * length
		fy += p * n[1] * length
		if viscous {
			// first-order shear from the cell center tangential velocity
			var (
				vt   = (-ul[1]*n[1] + ul[2]*n[0]) / ul[0]
				dist = math.Abs((mx-m.Center[l][0])*n[0] + (my-m.Center[l][1])*n[1])
				T    = fs.Temperature(ul[0], p)
				tauw = fs.Viscosity(T) / fs.Reinf * vt / dist
			)
			cf = 2. * tauw
			// shear force on the body opposes the fluid motion along the wall
			fx += tauw * -n[1] * length
			fy += tauw * n[0] * length
		}
		fmt.Fprintf(w, "%13.6e %13.6e %13.6e %13.6e\n", mx, my, cp, cf)
	}
	if !found {
		fmt.Printf("WARNING no faces found for output marker %d\n", marker)
	}

	var (
		ca, sa = math.Cos(fs.Alpha), math.Sin(fs.Alpha)
		qinf   = 0.5 // dynamic pressure at rhoinf = vinf = 1
	)
	sc = SurfaceCoeffs{
		Marker: marker,
		CD:     (fx*ca + fy*sa) / qinf,
		CL:     (-fx*sa + fy*ca) / qinf,
	}
	fmt.Fprintf(w, "# CL %13.6e  CD %13.6e\n", sc.CL, sc.CD)
	if err = w.Flush(); err != nil {
		return sc, fmt.Errorf("writing %s: %w", filename, err)
	}
	fmt.Printf("Surface %d: CL %10.6f  CD %10.6f  (%s)\n", marker, sc.CL, sc.CD, filename)
	return sc, nil
}

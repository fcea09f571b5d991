package spatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/leshihua/FVENS/flux"
	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
	"github.com/leshihua/FVENS/utils"
)

// FlowPhysicsConfig fixes the gas, the free stream and the boundary rules.
// Alpha is in radians.
type FlowPhysicsConfig struct {
	Gamma float64
	Minf  float64
	Alpha float64

	Viscous   bool
	Reinf     float64
	Tinf      float64
	Prandtl   float64
	ConstVisc bool

	BCs []BCSpec
}

// FlowNumericsConfig selects the discretization. JacobianFlux may be empty
// or "consistent" to linearize with the residual flux. GhostCellPolicy is
// "midpoint" (reflection through the face midpoint) or "faceplane"
// (reflection across the face plane).
type FlowNumericsConfig struct {
	Flux         string
	JacobianFlux string
	Gradient     string
	Limiter      string
	LimiterParam float64

	SecondOrder          bool
	ReconstructPrimitive bool
	GhostCellPolicy      string

	// Experimental switches on boundary rules not validated against
	// reference solutions.
	Experimental bool

	// InitVortex starts from the circular velocity field of the isentropic
	// vortex case instead of the uniform free stream.
	InitVortex bool

	// NumThreads caps the assembly worker count, 0 meaning all CPUs.
	NumThreads int
}

// FlowFV is the cell centered finite volume discretization of the Euler or
// Navier-Stokes equations. Residual and Jacobian reuse internal work arrays,
// so a FlowFV must not be shared between concurrent solves.
type FlowFV struct {
	m  *mesh.Mesh
	fs *physics.FreeStream
	fc *flux.Calculator

	grad GradientScheme
	lim  Limiter

	secondOrder bool
	reconPrim   bool
	viscous     bool
	initVortex  bool

	rules []BoundaryRule // per boundary face, nil on periodic faces
	rcg   [][2]float64   // ghost cell centers per boundary face
	mid   [][2]float64   // face midpoints per boundary face

	pmapF *utils.PartitionMap
	pmapC *utils.PartitionMap

	ug            []float64 // ghost cell averages, conserved
	uleft, uright []float64
	dudx, dudy    []float64
	w, wg         []float64 // reconstruction variables when not conserved
	prim, primg   []float64 // cell average primitives for viscous terms
	integ         []float64
	dacc          []float64
}

func NewFlowFV(m *mesh.Mesh, pcfg FlowPhysicsConfig, ncfg FlowNumericsConfig) (fv *FlowFV, err error) {
	var (
		nv  = physics.NVars
		nbf = m.NumBFaces
		fs  = physics.NewFreeStream(pcfg.Minf, pcfg.Gamma, pcfg.Alpha)
	)
	fs.Tinf = pcfg.Tinf
	fs.Reinf = pcfg.Reinf
	fs.Pr = pcfg.Prandtl
	fs.ConstVisc = pcfg.ConstVisc

	fv = &FlowFV{
		m:           m,
		fs:          fs,
		secondOrder: ncfg.SecondOrder && !strings.EqualFold(ncfg.Gradient, "NONE"),
		reconPrim:   ncfg.ReconstructPrimitive,
		viscous:     pcfg.Viscous,
		initVortex:  ncfg.InitVortex,
		pmapF:       utils.NewPartitionMap(utils.DegreeOfParallelism(ncfg.NumThreads), m.NumFaces),
		pmapC:       utils.NewPartitionMap(utils.DegreeOfParallelism(ncfg.NumThreads), m.NumCells),
		ug:          make([]float64, nbf*nv),
		uleft:       make([]float64, m.NumFaces*nv),
		uright:      make([]float64, m.NumFaces*nv),
		integ:       make([]float64, m.NumCells),
		dacc:        make([]float64, m.NumCells*nv*nv),
	}
	if fv.viscous {
		// viscous terms need primitive gradients
		fv.reconPrim = true
	}

	scheme := flux.NewScheme(ncfg.Flux)
	jac := scheme
	if ncfg.JacobianFlux != "" && !strings.EqualFold(ncfg.JacobianFlux, "consistent") {
		jac = flux.NewScheme(ncfg.JacobianFlux)
	}
	fv.fc = flux.NewCalculator(pcfg.Gamma, scheme, jac)

	if err = fv.setupGhostGeometry(ncfg.GhostCellPolicy); err != nil {
		return nil, err
	}
	if err = fv.setupBoundaryRules(pcfg.BCs, ncfg.Experimental); err != nil {
		return nil, err
	}

	if fv.secondOrder {
		fv.grad = NewGradientScheme(ncfg.Gradient, m, fv.rcg, nv)
		fv.lim = NewLimiter(ncfg.Limiter, m, fv.rcg, nv, ncfg.LimiterParam)
		fv.dudx = make([]float64, m.NumCells*nv)
		fv.dudy = make([]float64, m.NumCells*nv)
	} else if fv.viscous {
		// zero gradients leave only the directional difference in the
		// viscous face gradient
		fv.dudx = make([]float64, m.NumCells*nv)
		fv.dudy = make([]float64, m.NumCells*nv)
	}
	if fv.reconPrim || fv.viscous {
		fv.w = make([]float64, m.NumCells*nv)
		fv.wg = make([]float64, nbf*nv)
		fv.prim = fv.w
		fv.primg = fv.wg
	}

	fmt.Printf("  FlowFV: Using %s fluxes\n", fv.fc.Scheme)
	if fv.secondOrder {
		fmt.Printf("  FlowFV: Second order, %s gradients, %s limiting\n",
			strings.ToLower(ncfg.Gradient), strings.ToLower(ncfg.Limiter))
	} else {
		fmt.Printf("  FlowFV: First order\n")
	}
	if fv.viscous {
		fmt.Printf("  FlowFV: Viscous flow at Re %g, Pr %g\n", pcfg.Reinf, pcfg.Prandtl)
	}
	if fv.reconPrim && fv.secondOrder {
		fmt.Printf("  FlowFV: Reconstructing primitive variables\n")
	}
	return
}

// setupGhostGeometry places one ghost center per boundary face. Periodic
// faces take the partner cell center translated by the face midpoint offset,
// which makes gradients and limiters see the periodic image directly.
func (fv *FlowFV) setupGhostGeometry(policy string) error {
	var (
		m         = fv.m
		faceplane bool
	)
	switch strings.ToLower(policy) {
	case "", "midpoint":
	case "faceplane":
		faceplane = true
	default:
		return fmt.Errorf("unknown ghost cell policy %q", policy)
	}
	fv.rcg = make([][2]float64, m.NumBFaces)
	fv.mid = make([][2]float64, m.NumBFaces)
	for f := 0; f < m.NumBFaces; f++ {
		var (
			l      = m.FaceCells[f][0]
			rc     = m.Center[l]
			mx, my = m.FaceMidpoint(f)
		)
		fv.mid[f] = [2]float64{mx, my}
		if p := m.PeriodicPartner[f]; p >= 0 {
			var (
				r        = m.FaceCells[f][1]
				pmx, pmy = m.FaceMidpoint(p)
			)
			fv.rcg[f] = [2]float64{
				m.Center[r][0] + mx - pmx,
				m.Center[r][1] + my - pmy,
			}
			continue
		}
		if faceplane {
			var (
				n = m.Normal[f]
				d = (mx-rc[0])*n[0] + (my-rc[1])*n[1]
			)
			fv.rcg[f] = [2]float64{rc[0] + 2.*d*n[0], rc[1] + 2.*d*n[1]}
		} else {
			fv.rcg[f] = [2]float64{2.*mx - rc[0], 2.*my - rc[1]}
		}
	}
	return nil
}

func (fv *FlowFV) setupBoundaryRules(specs []BCSpec, experimental bool) error {
	var (
		m     = fv.m
		byTag = make(map[int]BoundaryRule, len(specs))
	)
	for _, spec := range specs {
		rule, err := NewBoundaryRule(spec, fv.fs, experimental)
		if err != nil {
			return err
		}
		byTag[spec.Marker] = rule
	}
	fv.rules = make([]BoundaryRule, m.NumBFaces)
	for f := 0; f < m.NumBFaces; f++ {
		if m.PeriodicPartner[f] >= 0 {
			continue
		}
		rule, ok := byTag[m.FaceMarker[f]]
		if !ok {
			return fmt.Errorf("no boundary condition for marker %d", m.FaceMarker[f])
		}
		if rule == nil {
			return fmt.Errorf("marker %d declared periodic but not paired in the mesh", m.FaceMarker[f])
		}
		fv.rules[f] = rule
	}
	return nil
}

func (fv *FlowFV) NumCells() int { return fv.m.NumCells }

func (fv *FlowFV) NumVars() int { return physics.NVars }

func (fv *FlowFV) Mesh() *mesh.Mesh { return fv.m }

func (fv *FlowFV) FreeStream() *physics.FreeStream { return fv.fs }

func (fv *FlowFV) GhostCenters() [][2]float64 { return fv.rcg }

// InitialState fills u with the free stream, or with the circular velocity
// field of the vortex case at unchanged speed and thermodynamic state.
func (fv *FlowFV) InitialState(u []float64) {
	var (
		nv = physics.NVars
		q  = fv.fs.Qinf
	)
	for i := 0; i < fv.m.NumCells; i++ {
		copy(u[i*nv:i*nv+nv], q[:])
		if fv.initVortex {
			var (
				c      = fv.m.Center[i]
				vx, vy = physics.SupersonicVortexVelocity(1., c[0], c[1])
			)
			u[i*nv+1] = q[0] * vx
			u[i*nv+2] = q[0] * vy
		}
	}
}

// CheckState reports the first cell with nonphysical density or pressure.
// The comparisons are written to fail on NaN as well.
func (fv *FlowFV) CheckState(u []float64) error {
	nv := physics.NVars
	for i := 0; i < fv.m.NumCells; i++ {
		var (
			ui = u[i*nv : i*nv+nv]
			p  = fv.fs.Pressure(ui)
		)
		if !(ui[0] > 0.) || !(p > 0.) {
			return fmt.Errorf("nonphysical state in cell %d: rho %g, p %g", i, ui[0], p)
		}
	}
	return nil
}

// ghostStates fills ug from the cell averages: the boundary rule of each
// face, or the periodic partner cell.
func (fv *FlowFV) ghostStates(u []float64) {
	var (
		m  = fv.m
		nv = physics.NVars
	)
	for f := 0; f < m.NumBFaces; f++ {
		ugf := fv.ug[f*nv : f*nv+nv]
		if m.PeriodicPartner[f] >= 0 {
			r := m.FaceCells[f][1]
			copy(ugf, u[r*nv:r*nv+nv])
			continue
		}
		l := m.FaceCells[f][0]
		fv.rules[f].Ghost(u[l*nv:l*nv+nv], m.Normal[f], fv.mid[f], ugf)
	}
}

// faceStates prepares uleft and uright on every face: reconstructed and
// limited when second order, cell averages otherwise, with boundary right
// states closed by the ghost rules.
func (fv *FlowFV) faceStates(u []float64) {
	var (
		m   = fv.m
		nv  = physics.NVars
		nbf = m.NumBFaces
	)
	if !fv.secondOrder {
		fv.pmapF.RunParallel(func(fmin, fmax int) {
			for f := fmin; f < fmax; f++ {
				l := m.FaceCells[f][0]
				copy(fv.uleft[f*nv:f*nv+nv], u[l*nv:l*nv+nv])
				if f >= nbf || m.PeriodicPartner[f] >= 0 {
					r := m.FaceCells[f][1]
					copy(fv.uright[f*nv:f*nv+nv], u[r*nv:r*nv+nv])
				}
			}
		})
		fv.ghostStates(u)
		if fv.viscous {
			fv.toPrimitive(u)
		}
		for f := 0; f < nbf; f++ {
			if m.PeriodicPartner[f] < 0 {
				copy(fv.uright[f*nv:f*nv+nv], fv.ug[f*nv:f*nv+nv])
			}
		}
		return
	}

	fv.ghostStates(u)
	w, wg := u, fv.ug
	if fv.reconPrim {
		fv.toPrimitive(u)
		w, wg = fv.w, fv.wg
	}
	fv.grad.Compute(w, wg, fv.dudx, fv.dudy)
	fv.lim.ComputeFaceValues(w, wg, fv.dudx, fv.dudy, fv.uleft, fv.uright)
	if fv.reconPrim {
		fv.pmapF.RunParallel(func(fmin, fmax int) {
			var tmp [4]float64
			for f := fmin; f < fmax; f++ {
				ul := fv.uleft[f*nv : f*nv+nv]
				copy(tmp[:], ul)
				fv.fs.PrimitiveToConserved(tmp[:], ul)
				if f >= nbf || m.PeriodicPartner[f] >= 0 {
					ur := fv.uright[f*nv : f*nv+nv]
					copy(tmp[:], ur)
					fv.fs.PrimitiveToConserved(tmp[:], ur)
				}
			}
		})
	}
	for f := 0; f < nbf; f++ {
		if m.PeriodicPartner[f] < 0 {
			fv.rules[f].Ghost(fv.uleft[f*nv:f*nv+nv], m.Normal[f], fv.mid[f],
				fv.uright[f*nv:f*nv+nv])
		}
	}
}

func (fv *FlowFV) toPrimitive(u []float64) {
	var (
		m  = fv.m
		nv = physics.NVars
	)
	fv.pmapC.RunParallel(func(imin, imax int) {
		for i := imin; i < imax; i++ {
			fv.fs.ConservedToPrimitive(u[i*nv:i*nv+nv], fv.w[i*nv:i*nv+nv])
		}
	})
	for f := 0; f < m.NumBFaces; f++ {
		fv.fs.ConservedToPrimitive(fv.ug[f*nv:f*nv+nv], fv.wg[f*nv:f*nv+nv])
	}
}

// Residual accumulates the steady residual of u into res, so that the semi
// discrete system reads V du/dt = -res. When dtm is non-nil it also receives
// the local time step allowed by the face wave speed integrals.
func (fv *FlowFV) Residual(u, res, dtm []float64) {
	var (
		m   = fv.m
		nv  = physics.NVars
		nbf = m.NumBFaces
	)
	fv.faceStates(u)
	for i := range res {
		res[i] = 0.
	}
	if dtm != nil {
		for i := range fv.integ {
			fv.integ[i] = 0.
		}
	}

	fv.pmapF.RunParallel(func(fmin, fmax int) {
		var (
			fl = make([]float64, nv)
			vf = make([]float64, nv)
		)
		for f := fmin; f < fmax; f++ {
			var (
				l      = m.FaceCells[f][0]
				r      = m.FaceCells[f][1]
				n      = m.Normal[f]
				length = m.FaceLength[f]
				ul     = fv.uleft[f*nv : f*nv+nv]
				ur     = fv.uright[f*nv : f*nv+nv]
				muRe   float64
				rhof   float64
			)
			fv.fc.Flux(ul, ur, n[:], fl)
			if fv.viscous {
				muRe, rhof = fv.viscousFaceFlux(f, vf)
				for k := 0; k < nv; k++ {
					fl[k] -= vf[k]
				}
			}
			interior := f >= nbf
			for k := 0; k < nv; k++ {
				utils.AtomicAdd(&res[l*nv+k], fl[k]*length)
				if interior {
					utils.AtomicAdd(&res[r*nv+k], -fl[k]*length)
				}
			}
			if dtm == nil {
				continue
			}
			var (
				pl = fv.fs.Pressure(ul)
				sl = (math.Abs(ul[1]*n[0]+ul[2]*n[1])/ul[0] + fv.fs.SoundSpeed(ul[0], pl)) * length
			)
			if fv.viscous {
				sl += fv.fs.Gamma * muRe / (rhof * fv.fs.Pr) * length * length / m.Area[l]
			}
			utils.AtomicAdd(&fv.integ[l], sl)
			if interior {
				var (
					pr = fv.fs.Pressure(ur)
					sr = (math.Abs(ur[1]*n[0]+ur[2]*n[1])/ur[0] + fv.fs.SoundSpeed(ur[0], pr)) * length
				)
				if fv.viscous {
					sr += fv.fs.Gamma * muRe / (rhof * fv.fs.Pr) * length * length / m.Area[r]
				}
				utils.AtomicAdd(&fv.integ[r], sr)
			}
		}
	})

	if dtm != nil {
		for i := 0; i < m.NumCells; i++ {
			if fv.integ[i] > 0. {
				dtm[i] = m.Area[i] / fv.integ[i]
			} else {
				dtm[i] = 1e30
			}
		}
	}
}

// viscousFaceFlux evaluates the viscous normal flux at face f from the cell
// average primitives and their gradients, corrected in the direction joining
// the cell centers. Returns mu/Re and the face density for the time step
// estimate.
func (fv *FlowFV) viscousFaceFlux(f int, vf []float64) (muRe, rhof float64) {
	var (
		m     = fv.m
		nv    = physics.NVars
		nbf   = m.NumBFaces
		l     = m.FaceCells[f][0]
		r     = m.FaceCells[f][1]
		n     = m.Normal[f]
		pl    = fv.prim[l*nv : l*nv+nv]
		pr    []float64
		cl    = m.Center[l]
		cr    [2]float64
		gl    = [2][]float64{fv.dudx[l*nv : l*nv+nv], fv.dudy[l*nv : l*nv+nv]}
		gr    [2][]float64
		gf    [4][2]float64
		gamma = fv.fs.Gamma
		bface = f < nbf
	)
	if bface && m.PeriodicPartner[f] < 0 {
		pr = fv.primg[f*nv : f*nv+nv]
		cr = fv.rcg[f]
		gr = gl
	} else {
		pr = fv.prim[r*nv : r*nv+nv]
		if bface {
			cr = fv.rcg[f]
		} else {
			cr = m.Center[r]
		}
		gr = [2][]float64{fv.dudx[r*nv : r*nv+nv], fv.dudy[r*nv : r*nv+nv]}
	}

	var (
		dx, dy = cr[0] - cl[0], cr[1] - cl[1]
		dist   = math.Hypot(dx, dy)
		ex, ey = dx / dist, dy / dist
	)
	for k := 0; k < nv; k++ {
		var (
			gx   = 0.5 * (gl[0][k] + gr[0][k])
			gy   = 0.5 * (gl[1][k] + gr[1][k])
			corr = (pr[k]-pl[k])/dist - (gx*ex + gy*ey)
		)
		gf[k][0] = gx + corr*ex
		gf[k][1] = gy + corr*ey
	}

	var (
		rho = 0.5 * (pl[0] + pr[0])
		vx  = 0.5 * (pl[1] + pr[1])
		vy  = 0.5 * (pl[2] + pr[2])
		p   = 0.5 * (pl[3] + pr[3])
		T   = fv.fs.Temperature(rho, p)
	)
	muRe = fv.fs.Viscosity(T) / fv.fs.Reinf
	rhof = rho

	var (
		gm2 = gamma * fv.fs.Minf * fv.fs.Minf
		gTx = gm2 * (rho*gf[3][0] - p*gf[0][0]) / (rho * rho)
		gTy = gm2 * (rho*gf[3][1] - p*gf[0][1]) / (rho * rho)
		div = gf[1][0] + gf[2][1]
		txx = muRe * (2.*gf[1][0] - 2./3.*div)
		tyy = muRe * (2.*gf[2][1] - 2./3.*div)
		txy = muRe * (gf[1][1] + gf[2][0])
		kh  = muRe * fv.fs.ThermalConductivityCoeff()
	)
	vf[0] = 0.
	vf[1] = txx*n[0] + txy*n[1]
	vf[2] = txy*n[0] + tyy*n[1]
	vf[3] = (txx*vx+txy*vy)*n[0] + (txy*vx+tyy*vy)*n[1] + kh*(gTx*n[0]+gTy*n[1])
	return
}

// Jacobian adds the linearization of Residual at u into A, using first order
// face states. A keeps whatever the caller seeded its diagonal with, usually
// the V/dt mass contribution.
func (fv *FlowFV) Jacobian(u []float64, A linsolve.BlockMatrix) {
	var (
		m    = fv.m
		nv   = physics.NVars
		b2   = nv * nv
		nbf  = m.NumBFaces
		face = A.Type() == 'd'
	)
	for i := range fv.dacc {
		fv.dacc[i] = 0.
	}
	fv.ghostStates(u)
	if fv.viscous {
		fv.toPrimitive(u)
	}

	assemble := func(fmin, fmax int) {
		var (
			dfdl = make([]float64, b2)
			dfdr = make([]float64, b2)
		)
		for f := fmin; f < fmax; f++ {
			var (
				l      = m.FaceCells[f][0]
				r      = m.FaceCells[f][1]
				n      = m.Normal[f]
				length = m.FaceLength[f]
				ul     = u[l*nv : l*nv+nv]
				ur     []float64
			)
			if f >= nbf || m.PeriodicPartner[f] >= 0 {
				ur = u[r*nv : r*nv+nv]
			} else {
				ur = fv.ug[f*nv : f*nv+nv]
			}
			fv.fc.Jacobian(ul, ur, n[:], dfdl, dfdr)
			if fv.viscous {
				fv.viscousJacobian(f, dfdl, dfdr)
			}
			for k := 0; k < b2; k++ {
				dfdl[k] *= length
				dfdr[k] *= length
			}
			if f >= nbf {
				if face {
					A.SubmitBlock(l, r, dfdr, linsolve.TagUpper, f-nbf)
					A.SubmitBlock(r, l, dfdl, linsolve.TagLower, f-nbf)
				} else {
					A.SubmitBlock(l, r, dfdr, nv, nv)
					A.SubmitBlock(r, l, dfdl, nv, nv)
				}
				for k := 0; k < b2; k++ {
					utils.AtomicAdd(&fv.dacc[l*b2+k], -dfdl[k])
					utils.AtomicAdd(&fv.dacc[r*b2+k], -dfdr[k])
				}
				continue
			}
			// boundary and periodic faces contribute to the left diagonal
			// only, linearizing the ghost state as frozen
			for k := 0; k < b2; k++ {
				utils.AtomicAdd(&fv.dacc[l*b2+k], -dfdl[k])
			}
		}
	}

	if face {
		fv.pmapF.RunParallel(assemble)
		fv.pmapC.RunParallel(func(imin, imax int) {
			for i := imin; i < imax; i++ {
				A.UpdateDiagBlock(i, fv.dacc[i*b2:(i+1)*b2])
			}
		})
		return
	}
	assemble(0, m.NumFaces)
	for i := 0; i < m.NumCells; i++ {
		A.UpdateDiagBlock(i, fv.dacc[i*b2:(i+1)*b2])
	}
}

// viscousJacobian folds the viscous spectral radius into the diagonal of the
// momentum and energy rows of the face Jacobian blocks.
func (fv *FlowFV) viscousJacobian(f int, dfdl, dfdr []float64) {
	var (
		m   = fv.m
		nv  = physics.NVars
		nbf = m.NumBFaces
		l   = m.FaceCells[f][0]
		cl  = m.Center[l]
		cr  [2]float64
		pl  = fv.prim[l*nv : l*nv+nv]
		pr  []float64
	)
	if f < nbf {
		cr = fv.rcg[f]
		if m.PeriodicPartner[f] >= 0 {
			pr = fv.prim[m.FaceCells[f][1]*nv : m.FaceCells[f][1]*nv+nv]
		} else {
			pr = fv.primg[f*nv : f*nv+nv]
		}
	} else {
		r := m.FaceCells[f][1]
		cr = m.Center[r]
		pr = fv.prim[r*nv : r*nv+nv]
	}
	var (
		dist  = math.Hypot(cr[0]-cl[0], cr[1]-cl[1])
		rho   = 0.5 * (pl[0] + pr[0])
		T     = fv.fs.Temperature(rho, 0.5*(pl[3]+pr[3]))
		coef  = math.Max(4./3., fv.fs.Gamma/fv.fs.Pr)
		alpha = fv.fs.Viscosity(T) / fv.fs.Reinf * coef / (rho * dist)
	)
	for k := 1; k < nv; k++ {
		dfdl[k*nv+k] -= alpha
		dfdr[k*nv+k] -= alpha
	}
}

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
	"strings"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/leshihua/FVENS/config"
	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/ode"
	"github.com/leshihua/FVENS/output"
	"github.com/leshihua/FVENS/physics"
	"github.com/leshihua/FVENS/spatial"
)

// steadyCmd represents the steady command
var steadyCmd = &cobra.Command{
	Use:   "steady case-file [mesh-file]",
	Short: "Run a steady flow case",
	Long: `
Reads a YAML case file (or a legacy .control file), solves the steady flow
problem it describes and writes the volume solution, surface coefficients
and residual history.

fvens steady cyl.yaml cyl.msh`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			prof, _      = cmd.Flags().GetBool("profile")
			graph, _     = cmd.Flags().GetBool("graph")
			plotSteps, _ = cmd.Flags().GetInt("plot-steps")
			legacyVTK, _ = cmd.Flags().GetBool("vtk")
		)
		if prof {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		return runSteady(args, graph, plotSteps, legacyVTK)
	},
}

func init() {
	rootCmd.AddCommand(steadyCmd)
	steadyCmd.Flags().Bool("profile", false, "write a CPU profile to the working directory")
	steadyCmd.Flags().Bool("graph", false, "plot the Mach field live during the solve")
	steadyCmd.Flags().Int("plot-steps", 10, "steps between live plot updates")
	steadyCmd.Flags().Bool("vtk", false, "also write the solution in legacy VTK format")
}

func runSteady(args []string, graph bool, plotSteps int, legacyVTK bool) error {
	opts, err := config.Read(args[0])
	if err != nil {
		return err
	}
	meshFile := opts.IO.MeshFile
	if meshFile == "from-cmd" || meshFile == "" {
		if len(args) < 2 {
			return fmt.Errorf("case wants the mesh on the command line, none given")
		}
		meshFile = args[1]
	}
	m, err := mesh.ReadGmsh(meshFile)
	if err != nil {
		return err
	}
	m.PrintStatistics()
	if p := opts.BC.Periodic; p != nil {
		if err = m.LinkPeriodic(p.Marker1, p.Marker2, p.Axis); err != nil {
			return err
		}
	}

	pcfg := opts.PhysicsConfig()
	fvMain, err := spatial.NewFlowFV(m, pcfg, opts.NumericsConfig(false))
	if err != nil {
		return err
	}

	mainCfg := stageConfig(&opts, opts.Pseudotime.Main)
	if opts.IO.ConvergenceHistoryRequired && opts.IO.LogFilePrefix != "" {
		mainCfg.HistoryFile = opts.IO.LogFilePrefix + ".tlog"
	}
	if graph {
		lp := output.NewLivePlot(m, fvMain.FreeStream())
		mainCfg.StepHook = func(step int, u []float64) { lp.Update(u) }
		mainCfg.StepHookInterval = plotSteps
	}

	driver := &ode.Driver{}
	if driver.Main, err = buildSolver(&opts, fvMain, mainCfg); err != nil {
		return err
	}
	if opts.HasStarter() {
		fvStart, serr := spatial.NewFlowFV(m, pcfg, opts.NumericsConfig(true))
		if serr != nil {
			return serr
		}
		if driver.Starter, err = buildSolver(&opts, fvStart,
			stageConfig(&opts, *opts.Pseudotime.Initialization)); err != nil {
			return err
		}
	}

	u := make([]float64, m.NumCells*physics.NVars)
	fvMain.InitialState(u)
	if err = driver.Solve(u); err != nil {
		return err
	}
	driver.Main.Timing().Print()

	return writeOutputs(&opts, m, fvMain.FreeStream(), u, legacyVTK)
}

func stageConfig(opts *config.Options, st config.Stage) ode.SteadySolverConfig {
	return ode.SteadySolverConfig{
		CFLMin:        st.CFLMin,
		CFLMax:        st.CFLMax,
		RampStart:     st.RampStart,
		RampEnd:       st.RampEnd,
		Tol:           st.Tolerance,
		MaxIter:       st.MaxTimesteps,
		SmoothingBeta: opts.Pseudotime.SmoothingBeta,
		NApplySweeps:  opts.Pseudotime.LinearSolver.NApplySweeps,
	}
}

func buildSolver(opts *config.Options, fv *spatial.FlowFV,
	cfg ode.SteadySolverConfig) (ode.SteadySolver, error) {
	if !opts.Implicit() {
		return ode.NewSteadyForwardEuler(fv, cfg), nil
	}
	var (
		pt = opts.Pseudotime
		m  = fv.Mesh()
		A  linsolve.BlockMatrix
	)
	switch strings.ToLower(pt.MatrixStorage) {
	case "", "point":
		conn := make([][2]int, 0, m.NumFaces-m.NumBFaces)
		for f := m.NumBFaces; f < m.NumFaces; f++ {
			conn = append(conn, m.FaceCells[f])
		}
		A = linsolve.NewFaceBlockMatrix(m.NumCells, fv.NumVars(), conn)
	case "csr":
		if strings.EqualFold(pt.Preconditioner, "SGS") {
			return nil, fmt.Errorf("SGS preconditioning needs point matrix storage")
		}
		A = linsolve.NewCSRBlockMatrix(m.NumCells, fv.NumVars())
	default:
		return nil, fmt.Errorf("unknown matrix_storage %q", pt.MatrixStorage)
	}
	var (
		prec = linsolve.NewPreconditioner(pt.Preconditioner, pt.LinearSolver.NApplySweeps)
		gm   = linsolve.NewGMRES(pt.LinearSolver.Restart,
			pt.LinearSolver.MaxIterations, pt.LinearSolver.Tolerance)
	)
	return ode.NewSteadyBackwardEuler(fv, cfg, A, prec, gm, pt.MatrixFree), nil
}

func writeOutputs(opts *config.Options, m *mesh.Mesh, fs *physics.FreeStream,
	u []float64, legacyVTK bool) error {
	fmt.Printf("Entropy error vs free stream: %13.6e\n", output.EntropyError(m, fs, u))
	if out := opts.IO.SolutionOutputFile; out != "" {
		pf := output.Postprocess(m, fs, u)
		if err := output.WriteVTU(out, m, pf); err != nil {
			return err
		}
		if legacyVTK {
			if err := output.WriteLegacyVTK(strings.TrimSuffix(out, ".vtu")+".vtk", m, pf); err != nil {
				return err
			}
		}
	}
	var markers []int
	markers = append(markers, opts.BC.OutputWallBoundaries...)
	markers = append(markers, opts.BC.OutputOtherBoundaries...)
	if len(markers) > 0 && opts.BC.SurfaceOutputFilePrefix != "" {
		viscous := strings.EqualFold(opts.FlowConditions.FlowType, "navierstokes")
		if _, err := output.WriteSurfaceCoefficients(opts.BC.SurfaceOutputFilePrefix,
			m, fs, u, markers, viscous); err != nil {
			return err
		}
	}
	return nil
}

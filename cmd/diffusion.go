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
	"strings"

	"github.com/spf13/cobra"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/ode"
	"github.com/leshihua/FVENS/spatial"
)

// diffusionCmd represents the diffusion command
var diffusionCmd = &cobra.Command{
	Use:   "diffusion",
	Short: "Verify the solver stack on a scalar Poisson problem",
	Long: `
Solves -nu lap u = f on the unit square with the manufactured solution
u = sin(pi x) sin(pi y) and reports the discretization error, exercising
mesh, assembly, linear solver and pseudo-time march with one unknown per
cell.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			nx, _       = cmd.Flags().GetInt("nx")
			nu, _       = cmd.Flags().GetFloat64("nu")
			explicit, _ = cmd.Flags().GetBool("explicit")
			tri, _      = cmd.Flags().GetBool("tri")
		)
		return runDiffusion(nx, nu, explicit, tri)
	},
}

func init() {
	rootCmd.AddCommand(diffusionCmd)
	diffusionCmd.Flags().Int("nx", 32, "cells per side")
	diffusionCmd.Flags().Float64("nu", 1.0, "diffusivity")
	diffusionCmd.Flags().Bool("explicit", false, "use the explicit march instead of backward Euler")
	diffusionCmd.Flags().Bool("tri", false, "triangular cells instead of quads")
}

func runDiffusion(nx int, nu float64, explicit, tri bool) error {
	text := mesh.RectangleQuad(nx, nx, 0., 0., 1., 1., [4]int{1, 1, 1, 1})
	if tri {
		text = mesh.RectangleTri(nx, nx, 0., 0., 1., 1., [4]int{1, 1, 1, 1})
	}
	m, err := mesh.ReadFrom(strings.NewReader(text))
	if err != nil {
		return err
	}
	m.PrintStatistics()

	exact := func(x, y float64) float64 {
		return math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	}
	d, err := spatial.NewDiffusionFV(m, nu, nil, func(x, y float64) float64 {
		return 2. * math.Pi * math.Pi * nu * exact(x, y)
	})
	if err != nil {
		return err
	}

	var solver ode.SteadySolver
	if explicit {
		solver = ode.NewSteadyForwardEuler(d, ode.SteadySolverConfig{
			CFLMin: 0.8, CFLMax: 0.8, Tol: 1.e-8, MaxIter: 2000000,
			LogInterval: 50000, SmoothingBeta: 0.4, NApplySweeps: 2,
		})
	} else {
		conn := make([][2]int, 0, m.NumFaces-m.NumBFaces)
		for f := m.NumBFaces; f < m.NumFaces; f++ {
			conn = append(conn, m.FaceCells[f])
		}
		solver = ode.NewSteadyBackwardEuler(d, ode.SteadySolverConfig{
			CFLMin: 1.e3, CFLMax: 1.e6, RampStart: 0, RampEnd: 5,
			Tol: 1.e-10, MaxIter: 200, LogInterval: 10,
		}, linsolve.NewFaceBlockMatrix(m.NumCells, 1, conn),
			linsolve.NewBlockSGS(1), linsolve.NewGMRES(50, 500, 1.e-9), false)
	}

	u := make([]float64, m.NumCells)
	d.InitialState(u)
	converged, err := solver.Solve(u)
	if err != nil {
		return err
	}
	solver.Timing().Print()
	if !converged {
		fmt.Printf("WARNING diffusion run did not reach tolerance\n")
	}

	var l2, linf float64
	for i := 0; i < m.NumCells; i++ {
		c := m.Center[i]
		e := u[i] - exact(c[0], c[1])
		l2 += m.Area[i] * e * e
		linf = math.Max(linf, math.Abs(e))
	}
	fmt.Printf("Error vs manufactured solution: L2 %13.6e  Linf %13.6e  (h = %g)\n",
		math.Sqrt(l2), linf, 1./float64(nx))
	return nil
}

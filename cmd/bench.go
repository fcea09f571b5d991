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
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
	"github.com/leshihua/FVENS/spatial"
)

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time residual and Jacobian assembly",
	Long: `
Assembles the residual and the block Jacobian of a free-stream flow on a
generated quad mesh repeatedly, sweeping the worker count from one to all
CPUs, and reports wall time per pass. Results are appended to bench.log.
On linux, hardware instruction and cycle counts are reported for the
single threaded passes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			nx, _   = cmd.Flags().GetInt("nx")
			reps, _ = cmd.Flags().GetInt("reps")
			log, _  = cmd.Flags().GetString("log")
		)
		return runBench(nx, reps, log)
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().Int("nx", 128, "cells per side of the benchmark mesh")
	benchCmd.Flags().Int("reps", 20, "assembly passes to time")
	benchCmd.Flags().String("log", "bench.log", "file to append results to, empty disables")
}

func runBench(nx, reps int, logfile string) error {
	var (
		markers = [4]int{1, 2, 3, 4}
		m, err  = mesh.ReadFrom(strings.NewReader(
			mesh.RectangleQuad(nx, nx, 0., 0., 1., 1., markers)))
	)
	if err != nil {
		return err
	}
	m.PrintStatistics()
	var bcs []spatial.BCSpec
	for _, mk := range markers {
		bcs = append(bcs, spatial.BCSpec{Type: "farfield", Marker: mk})
	}

	var logw io.Writer = io.Discard
	if logfile != "" {
		lf, lerr := os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if lerr != nil {
			return lerr
		}
		defer lf.Close()
		fmt.Fprintf(lf, "# %s cells %d reps %d\n", time.Now().Format(time.RFC3339),
			m.NumCells, reps)
		fmt.Fprintf(lf, "# threads  pass  ns/cell\n")
		logw = lf
	}

	var (
		nv   = physics.NVars
		u    = make([]float64, m.NumCells*nv)
		res  = make([]float64, len(u))
		dtm  = make([]float64, m.NumCells)
		conn = make([][2]int, 0, m.NumFaces-m.NumBFaces)
	)
	for f := m.NumBFaces; f < m.NumFaces; f++ {
		conn = append(conn, m.FaceCells[f])
	}
	A := linsolve.NewFaceBlockMatrix(m.NumCells, nv, conn)

	for nt := 1; nt <= runtime.NumCPU(); nt *= 2 {
		fv, err := spatial.NewFlowFV(m, spatial.FlowPhysicsConfig{
			Gamma: 1.4, Minf: 0.5, Alpha: 0.02, BCs: bcs,
		}, spatial.FlowNumericsConfig{
			Flux: "Roe", SecondOrder: true, Gradient: "leastSquares",
			Limiter: "Venkatakrishnan", LimiterParam: 4., NumThreads: nt,
		})
		if err != nil {
			return err
		}
		fv.InitialState(u)

		timeIt := func(label string, f func()) {
			f() // warm up
			start := time.Now()
			for r := 0; r < reps; r++ {
				f()
			}
			var (
				per    = time.Since(start) / time.Duration(reps)
				perCel = float64(per.Nanoseconds()) / float64(m.NumCells)
			)
			fmt.Printf("%2d threads  %-12s %12v per pass  (%.1f ns/cell)\n",
				nt, label, per, perCel)
			fmt.Fprintf(logw, "%d  %s  %.2f\n", nt, label, perCel)
			if nt == 1 {
				reportCounters(label, f)
			}
		}
		timeIt("residual", func() { fv.Residual(u, res, dtm) })
		timeIt("jacobian", func() { A.Zero(); fv.Jacobian(u, A) })
	}
	return nil
}

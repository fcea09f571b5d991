//go:build linux

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

	perf "github.com/hodgesds/perf-utils"
)

// reportCounters wraps one assembly pass in hardware performance counters.
// Counter access needs perf_event_open permission; failures only warn.
func reportCounters(label string, f func()) {
	wrapped := func() error { f(); return nil }
	instr, err := perf.CPUInstructions(wrapped)
	if err != nil {
		fmt.Printf("%-20s hardware counters unavailable: %v\n", label, err)
		return
	}
	cycles, err := perf.CPUCycles(wrapped)
	if err != nil {
		fmt.Printf("%-20s cycle counter unavailable: %v\n", label, err)
		return
	}
	ipc := 0.
	if cycles.Value > 0 {
		ipc = float64(instr.Value) / float64(cycles.Value)
	}
	fmt.Printf("%-20s %12d instructions  %12d cycles  IPC %.2f\n",
		label, instr.Value, cycles.Value, ipc)
}

package engine

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"os/exec"
)

// PlotterConfig names the external program PlotDiagram shells out to
// after writing the data file, and the arguments it's invoked with
// (spec §6, §1: "plotting of motion diagrams" is an out-of-scope
// collaborator, not core logic). An empty Command skips invocation and
// only writes the data file.
type PlotterConfig struct {
	Command string
	Args    []string
}

// PlotDiagram writes d's waypoints to path as a tabular data file (spec
// §6) and, if cmd.Command is set, invokes the external plotting program
// with path appended to its argument list.
func (e *Engine) PlotDiagram(d *Diagram, path string, cmd PlotterConfig) error {
	if d == nil {
		return &ErrConfiguration{Reason: "nil diagram"}
	}

	f, err := os.Create(path)
	if err != nil {
		return &ErrConfiguration{Reason: "creating plot data file: " + err.Error()}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprint(w, "# x=t[s]   y=omega[s^-1]   steps\n")

	d.mu.Lock()
	waypoints := make([]Waypoint, len(d.waypoints))
	copy(waypoints, d.waypoints)
	d.mu.Unlock()

	for _, wp := range waypoints {
		hz := wp.Omega / (2 * math.Pi)
		fmt.Fprintf(w, "%g  %g  %d-Steps\n", wp.T, hz, wp.SumSteps)
	}
	if err := w.Flush(); err != nil {
		return &ErrConfiguration{Reason: "writing plot data file: " + err.Error()}
	}
	if err := f.Close(); err != nil {
		return &ErrConfiguration{Reason: "closing plot data file: " + err.Error()}
	}

	if cmd.Command == "" {
		return nil
	}

	args := append(append([]string{}, cmd.Args...), path)
	if err := exec.Command(cmd.Command, args...).Run(); err != nil {
		return &ErrOS{Reason: "external plotting tool failed: " + err.Error()}
	}
	return nil
}

package engine

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// SpeedFormat selects how a motion-profile file's first column and the
// meaning of its second column are interpreted (spec §6).
type SpeedFormat int

const (
	// OMEGA: "omega[rad/s] t[s]".
	OMEGA SpeedFormat = iota
	// FREQ: "f[Hz] t[s]", omega = 2*pi*f.
	FREQ
	// RPM: "rpm t[s]", omega = 2*pi*rpm/60.
	RPM
	// STEP: "f[Hz] cumulative_steps".
	STEP
)

// LoadDiagramFromFile reads a motion-profile text file and appends its
// waypoints to a new diagram attached to m (spec §6). Blank lines and
// lines whose first non-space character is '#' are ignored. A line that
// doesn't split into exactly two fields is logged and skipped; a
// negative-time waypoint aborts the remainder of the file (the returned
// diagram is left in its data_incorrect state so a subsequent start_md
// fails cleanly, matching the behavior insertWaypoint already gives a
// bad waypoint arriving from the control surface).
func (e *Engine) LoadDiagramFromFile(m *Motor, path string, format SpeedFormat) (*Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ErrConfiguration{Reason: "opening motion-profile file: " + err.Error()}
	}
	defer f.Close()

	d, err := e.NewDiagram(m)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			e.logger.Warn("motion-profile file: malformed line, skipping",
				zap.String("path", path), zap.Int("line", lineNo), zap.String("text", line))
			continue
		}

		a, errA := strconv.ParseFloat(fields[0], 64)
		b, errB := strconv.ParseFloat(fields[1], 64)
		if errA != nil || errB != nil {
			e.logger.Warn("motion-profile file: non-numeric line, skipping",
				zap.String("path", path), zap.Int("line", lineNo), zap.String("text", line))
			continue
		}

		var insertErr error
		switch format {
		case OMEGA:
			insertErr = e.AddByOmega(d, a, b)
		case FREQ:
			insertErr = e.AddByHz(d, a, b)
		case RPM:
			insertErr = e.AddByRPM(d, a, b)
		case STEP:
			insertErr = e.AddBySteps(d, a, int64(math.Round(b)))
		}
		if insertErr != nil {
			e.logger.Warn("motion-profile file: waypoint rejected, aborting",
				zap.String("path", path), zap.Int("line", lineNo), zap.Error(insertErr))
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return d, &ErrConfiguration{Reason: "reading motion-profile file: " + err.Error()}
	}

	return d, nil
}

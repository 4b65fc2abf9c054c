package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"raycheck/types"
)

// Epsilon absorbs the difference between full-precision values and values
// read back from six-decimal files. It is below the serialized precision.
const Epsilon = 1e-7

// Cutoff is the worst accepted result of one test
type Cutoff struct {
	SSIM float64
	RMSD float64
}

// CutoffTable maps test names to cutoffs
type CutoffTable map[string]Cutoff

// Regression is one metric of one test exceeding its cutoff
type Regression struct {
	Name   string
	Metric string
	Value  float64
	Cutoff float64
}

func (r Regression) String() string {
	if r.Metric == "RMSD" {
		return fmt.Sprintf("%s RMSD %.6f is greater than cutoff %.6f", r.Name, r.Value, r.Cutoff)
	}
	return fmt.Sprintf("%s SSIM %.6f is lower than cutoff %.6f", r.Name, r.Value, r.Cutoff)
}

// ParseWarning describes a cutoff line that was skipped or overridden
type ParseWarning struct {
	Message string
	// Malformed is set for skipped lines and unset for duplicates
	Malformed bool
}

func (w ParseWarning) String() string {
	return w.Message
}

// LoadCutoffs reads a cutoff file. Malformed lines and duplicate names are
// reported in warnings; the last entry of a duplicated name wins.
func LoadCutoffs(path string) (CutoffTable, []ParseWarning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	table, warnings, err := ParseCutoffs(f)
	if err != nil {
		return nil, warnings, fmt.Errorf("cannot read cutoffs file %s: %w", path, err)
	}
	for i, w := range warnings {
		warnings[i].Message = w.Message + " in cutoffs file " + path
	}
	return table, warnings, nil
}

// ParseCutoffs parses tab-separated "name, ssim, rmsd" lines. Lines starting
// with '#' and blank lines are ignored.
func ParseCutoffs(r io.Reader) (CutoffTable, []ParseWarning, error) {
	table := make(CutoffTable)
	var warnings []ParseWarning

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, cutoff, err := parseCutoffLine(line)
		if err != nil {
			warnings = append(warnings, ParseWarning{
				Message:   fmt.Sprintf("Failed to parse line %q (%v), ignoring", line, err),
				Malformed: true,
			})
			continue
		}
		if _, dup := table[name]; dup {
			warnings = append(warnings, ParseWarning{
				Message: fmt.Sprintf("Duplicate cutoffs detected for %s, using the last one", name),
			})
		}
		table[name] = cutoff
	}
	return table, warnings, sc.Err()
}

func parseCutoffLine(line string) (string, Cutoff, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return "", Cutoff{}, fmt.Errorf("expected 3 tab-separated fields, got %d", len(fields))
	}
	ssim, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return "", Cutoff{}, fmt.Errorf("invalid ssim: %w", err)
	}
	rmsd, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return "", Cutoff{}, fmt.Errorf("invalid rmsd: %w", err)
	}
	return fields[0], Cutoff{SSIM: ssim, RMSD: rmsd}, nil
}

// Check compares every tuple that has a cutoff. Tests without a cutoff have
// no baseline yet and are skipped.
func Check(tuples []types.MetricTuple, cutoffs CutoffTable) []Regression {
	var regressions []Regression
	for _, t := range tuples {
		c, ok := cutoffs[t.Name]
		if !ok {
			continue
		}
		if t.RMSD >= c.RMSD+Epsilon {
			regressions = append(regressions, Regression{Name: t.Name, Metric: "RMSD", Value: t.RMSD, Cutoff: c.RMSD})
		}
		if t.SSIM < c.SSIM-Epsilon {
			regressions = append(regressions, Regression{Name: t.Name, Metric: "SSIM", Value: t.SSIM, Cutoff: c.SSIM})
		}
	}
	return regressions
}

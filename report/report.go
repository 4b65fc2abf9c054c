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

// Preamble is written at the top of the report unless suppressed
const Preamble = `
This file reports differences between the images created by your raytracer and
those created by the reference raytracer. These results are in a comma-separated
value format. The columns are

test-name, ssim-value, rmsd-value

RMSD is the root-mean-squared-difference, a measure of difference between
two images. Two identical images have an RMSD of 0, and it increases to a
max of 1.0 for maximally different images.

SSIM is the mean structural-similarity index. This is a simple statistical
metric of how perceptually-similar two images are. It is a number between 0
and 1, where two identical images have an SSIM of 1.

No single image difference metric is perfect, and Whitted-style raytracers
without global illumination (including the reference raytracer) do not have a
single correct solution. There is no cutoff value past which an image is
unambiguously "correct". Do not use these numbers alone to decide whether your
raytracer is producing correct output.

You can view visualizations of the SSIM error in the montage directory. Once you
believe your raytracer is correctly rendering a scene (which will often be at
nonzero error values for complex scenes), you may copy the line for that test
from this file into the cutoffs file (tab-separated: test-name, ssim, rmsd).
"raycheck promote" converts report lines into that format.

raycheck will use the cutoffs file to determine whether a test has regressed.
If the SSIM or RMSD value for a test is worse than the cutoff stored in the
cutoffs file, raycheck will print a warning. You can use this to quickly
determine if your raytracer is failing scenes that it was previously rendering
correctly.

To suppress this message, pass the --i-understand-that-image-metrics-are-not-perfect
flag to raycheck.

`

// WriteReport writes the tuples sorted by ascending SSIM to path
func WriteReport(path string, tuples []types.MetricTuple, withPreamble bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create report %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, tuples, withPreamble); err != nil {
		return fmt.Errorf("cannot write report %s: %w", path, err)
	}
	return f.Close()
}

// Write serializes the report to w
func Write(w io.Writer, tuples []types.MetricTuple, withPreamble bool) error {
	bw := bufio.NewWriter(w)
	if withPreamble {
		if _, err := bw.WriteString(Preamble); err != nil {
			return err
		}
	}
	for _, t := range SortBySSIM(tuples) {
		if _, err := fmt.Fprintf(bw, "%s, %.6f, %.6f\n", t.Name, t.SSIM, t.RMSD); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseReportLine parses a "name, ssim, rmsd" report line
func ParseReportLine(line string) (types.MetricTuple, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 {
		return types.MetricTuple{}, fmt.Errorf("expected 3 comma-separated fields, got %d", len(fields))
	}
	ssim, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return types.MetricTuple{}, fmt.Errorf("invalid ssim %q: %w", fields[1], err)
	}
	rmsd, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return types.MetricTuple{}, fmt.Errorf("invalid rmsd %q: %w", fields[2], err)
	}
	return types.MetricTuple{Name: strings.TrimSpace(fields[0]), SSIM: ssim, RMSD: rmsd}, nil
}

// PromoteLines converts report lines into cutoff lines. Preamble text and
// lines that do not parse are skipped.
func PromoteLines(r io.Reader, w io.Writer) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		t, err := ParseReportLine(sc.Text())
		if err != nil || t.Name == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\t%.6f\t%.6f\n", t.Name, t.SSIM, t.RMSD); err != nil {
			return n, err
		}
		n++
	}
	return n, sc.Err()
}

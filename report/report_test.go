package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raycheck/types"
)

func TestWriteSortsBySSIM(t *testing.T) {
	tuples := []types.MetricTuple{
		{Name: "a", SSIM: 0.9, RMSD: 0.05, Index: 0},
		{Name: "b", SSIM: 0.5, RMSD: 0.2, Index: 1},
		{Name: "c", SSIM: 0.99, RMSD: 0.001, Index: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tuples, false))
	assert.Equal(t,
		"b, 0.500000, 0.200000\n"+
			"a, 0.900000, 0.050000\n"+
			"c, 0.990000, 0.001000\n",
		buf.String())
}

func TestWriteReportPreamble(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	tuples := []types.MetricTuple{{Name: "box", SSIM: 1, RMSD: 0}}

	require.NoError(t, WriteReport(path, tuples, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Preamble))
	assert.True(t, strings.HasSuffix(string(data), "box, 1.000000, 0.000000\n"))

	require.NoError(t, WriteReport(path, tuples, false))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "box, 1.000000, 0.000000\n", string(data))
}

func TestCollectorConcurrentAdds(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(types.MetricTuple{Name: "t", SSIM: float64(50-i) / 50, Index: i})
		}(i)
	}
	wg.Wait()

	require.Equal(t, 50, c.Len())
	inOrder := c.Tuples()
	for i, tp := range inOrder {
		assert.Equal(t, i, tp.Index)
	}
	sorted := c.Sorted()
	for i := 1; i < len(sorted); i++ {
		assert.LessOrEqual(t, sorted[i-1].SSIM, sorted[i].SSIM)
	}
}

func TestSortBySSIMStableTies(t *testing.T) {
	sorted := SortBySSIM([]types.MetricTuple{
		{Name: "first", SSIM: 0.0, RMSD: 1.0},
		{Name: "second", SSIM: 0.0, RMSD: 1.0},
		{Name: "good", SSIM: 0.8},
	})
	assert.Equal(t, "first", sorted[0].Name)
	assert.Equal(t, "second", sorted[1].Name)
	assert.Equal(t, "good", sorted[2].Name)
}

func TestParseCutoffs(t *testing.T) {
	input := strings.Join([]string{
		"# accepted results",
		"foo\t0.95\t0.01",
		"broken line with spaces 0.9 0.1",
		"bar\t0.80",
		"baz\tnot-a-number\t0.1",
		"",
		"qux\t0.5\t0.3",
		"foo\t0.96\t0.02",
	}, "\n")

	table, warnings, err := ParseCutoffs(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, table, 2)
	assert.Equal(t, Cutoff{SSIM: 0.96, RMSD: 0.02}, table["foo"])
	assert.Equal(t, Cutoff{SSIM: 0.5, RMSD: 0.3}, table["qux"])
	assert.NotContains(t, table, "bar")
	assert.NotContains(t, table, "baz")

	require.Len(t, warnings, 4)
	for _, w := range warnings[:3] {
		assert.True(t, w.Malformed)
	}
	assert.False(t, warnings[3].Malformed)
	assert.Contains(t, warnings[3].String(), "Duplicate cutoffs detected for foo")
}

func TestLoadCutoffsMissingFile(t *testing.T) {
	_, _, err := LoadCutoffs(filepath.Join(t.TempDir(), "cutoffs.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheck(t *testing.T) {
	cutoffs := CutoffTable{"foo": {SSIM: 0.95, RMSD: 0.01}}

	tests := []struct {
		name    string
		ssim    float64
		rmsd    float64
		metrics []string
	}{
		{"within epsilon", 0.9500001, 0.01, nil},
		{"rounded equal", 0.95, 0.01, nil},
		{"better", 0.99, 0.001, nil},
		{"ssim regression", 0.94, 0.01, []string{"SSIM"}},
		{"rmsd regression", 0.96, 0.02, []string{"RMSD"}},
		{"both", 0.5, 0.5, []string{"RMSD", "SSIM"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check([]types.MetricTuple{{Name: "foo", SSIM: tt.ssim, RMSD: tt.rmsd}}, cutoffs)
			var metrics []string
			for _, r := range got {
				metrics = append(metrics, r.Metric)
			}
			assert.Equal(t, tt.metrics, metrics)
		})
	}

	t.Run("no baseline", func(t *testing.T) {
		got := Check([]types.MetricTuple{{Name: "new", SSIM: 0, RMSD: 1}}, cutoffs)
		assert.Empty(t, got)
	})
}

func TestRegressionString(t *testing.T) {
	assert.Equal(t, "foo RMSD 0.020000 is greater than cutoff 0.010000",
		Regression{Name: "foo", Metric: "RMSD", Value: 0.02, Cutoff: 0.01}.String())
	assert.Equal(t, "foo SSIM 0.940000 is lower than cutoff 0.950000",
		Regression{Name: "foo", Metric: "SSIM", Value: 0.94, Cutoff: 0.95}.String())
}

func TestPromoteLines(t *testing.T) {
	var report bytes.Buffer
	tuples := []types.MetricTuple{
		{Name: "box", SSIM: 0.998, RMSD: 0.004},
		{Name: "polymesh_dragon", SSIM: 0.91, RMSD: 0.03},
	}
	require.NoError(t, Write(&report, tuples, true))

	var out bytes.Buffer
	n, err := PromoteLines(&report, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	table, warnings, err := ParseCutoffs(&out)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, Cutoff{SSIM: 0.998, RMSD: 0.004}, table["box"])
	assert.Equal(t, Cutoff{SSIM: 0.91, RMSD: 0.03}, table["polymesh_dragon"])
}

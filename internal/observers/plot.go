package observers

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/stride/internal/runner"
)

// Plot buffers the cost-versus-iteration series of a run and writes it as a
// CSV progress curve on finish, ready for external plotting. When the series
// grows beyond MaxPoints it is downsampled with a fixed stride so the curve
// stays bounded for very long runs.
type Plot struct {
	mu    sync.Mutex
	iters []float64
	costs []float64

	path      string
	maxPoints int
}

// NewPlot creates a plot buffer that writes its curve to path on finish.
// maxPoints bounds the written series; zero keeps every point.
func NewPlot(path string, maxPoints int) *Plot {
	return &Plot{path: path, maxPoints: maxPoints}
}

func (p *Plot) OnIteration(m runner.Measurement) error {
	if !m.HasCost {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iters = append(p.iters, float64(m.Iteration))
	p.costs = append(p.costs, m.Cost)
	return nil
}

func (p *Plot) OnFinish(sum runner.Summary) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.costs) == 0 {
		return nil
	}

	iters, costs := downsample(p.iters, p.costs, p.maxPoints)

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	f, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"iteration", "cost"}); err != nil {
		return fmt.Errorf("failed to write plot header: %w", err)
	}
	for i := range iters {
		record := []string{
			strconv.FormatFloat(iters[i], 'f', -1, 64),
			strconv.FormatFloat(costs[i], 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write plot row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush plot file: %w", err)
	}

	mean, stddev := stat.MeanStdDev(p.costs, nil)
	slog.Debug("Progress curve written",
		"path", p.path,
		"points", len(iters),
		"cost_mean", mean,
		"cost_stddev", stddev,
		"best_cost", sum.BestCost,
	)
	return nil
}

// Series returns a copy of the buffered curve, mainly for tests and for the
// job server's trace endpoint.
func (p *Plot) Series() (iters, costs []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64{}, p.iters...), append([]float64{}, p.costs...)
}

// downsample keeps at most max points by taking every k-th sample. The last
// point is always kept so the curve ends at the final cost.
func downsample(iters, costs []float64, max int) ([]float64, []float64) {
	n := len(costs)
	if max <= 0 || n <= max {
		return iters, costs
	}
	stride := (n + max - 1) / max
	outIters := make([]float64, 0, max)
	outCosts := make([]float64, 0, max)
	for i := 0; i < n; i += stride {
		outIters = append(outIters, iters[i])
		outCosts = append(outCosts, costs[i])
	}
	if outIters[len(outIters)-1] != iters[n-1] {
		outIters = append(outIters, iters[n-1])
		outCosts = append(outCosts, costs[n-1])
	}
	return outIters, outCosts
}

package observers

import (
	"github.com/cwbudde/stride/internal/runner"
	"github.com/cwbudde/stride/internal/store"
)

// Trace appends every observed measurement to a JSONL trace file, making the
// run's progress curve available to readers after (or during) the run.
type Trace struct {
	writer *store.TraceWriter
}

// NewTrace wraps a trace writer as an observer sink. The caller keeps
// ownership of the writer and is responsible for closing it after the run.
func NewTrace(w *store.TraceWriter) *Trace {
	return &Trace{writer: w}
}

func (t *Trace) OnIteration(m runner.Measurement) error {
	return t.writer.Append(store.EntryFromMeasurement(m))
}

// OnFinish flushes buffered entries so the trace is durable even if the
// process lingers after the run.
func (t *Trace) OnFinish(runner.Summary) error {
	return t.writer.Flush()
}

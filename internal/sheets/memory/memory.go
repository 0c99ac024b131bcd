// Package memory keeps exported reports in process. It backs the worker when
// no spreadsheet is configured and serves as the exporter in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tesoro/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	reports map[string]sheets.Report
	order   []string
	fail    error
}

var _ sheets.ResolutionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{reports: make(map[string]sheets.Report)}
}

// ExportResolution stores the report under its tab title. Exporting the same
// list again replaces the previous report.
func (e *Exporter) ExportResolution(_ context.Context, r sheets.Report) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return "", e.fail
	}
	title := sheets.Title(r.List)
	if _, ok := e.reports[title]; !ok {
		e.order = append(e.order, title)
	}
	e.reports[title] = r
	return fmt.Sprintf("mem:%s", title), nil
}

// FailWith makes every following export return err. A nil err clears it.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

// Reports returns the stored reports in first-export order.
func (e *Exporter) Reports() []sheets.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sheets.Report, 0, len(e.order))
	for _, title := range e.order {
		out = append(out, e.reports[title])
	}
	return out
}

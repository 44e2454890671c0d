package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// ErrNoDataInRange is returned when the requested window holds no rows.
var ErrNoDataInRange = errors.New("no data found in the selected time range")

// NotStartedMarker fills the elapsed-time column when the store has no
// STARTED row to anchor on.
const NotStartedMarker = "N/A (Reactor not started)"

const (
	dataSheet  = "Data"
	notesSheet = "Notes"
)

// Request describes one export window. IntervalS == 0 means raw rows, no
// resampling.
type Request struct {
	StartTS   float64
	EndTS     float64
	IntervalS int

	// DisplayNames maps channel keys to export column names. Setpoint columns
	// are not listed; they take the base channel's name with an " SP" suffix.
	DisplayNames map[string]string
}

// Export queries the inclusive window from the store, optionally resamples
// it onto a fixed-interval grid, annotates elapsed time since the reactor
// start, and writes a two-sheet xlsx artifact to path.
func Export(store ports.SampleStore, path string, req Request) error {
	rows, err := store.QueryRange(req.StartTS, req.EndTS)
	if err != nil {
		return fmt.Errorf("query export range: %w", err)
	}
	if len(rows) == 0 {
		return ErrNoDataInRange
	}

	if req.IntervalS > 0 {
		rows = Resample(rows, req.IntervalS)
	}

	// The anchor comes from the whole store, not the window: a run started
	// before the export range still defines elapsed time.
	anchor, anchored, err := store.FirstStarted()
	if err != nil {
		return fmt.Errorf("locate start marker: %w", err)
	}

	if err := writeArtifact(path, store.Columns(), rows, req, anchor, anchored); err != nil {
		return fmt.Errorf("write export artifact: %w", err)
	}
	return nil
}

// Resample buckets rows into fixed-width, left-closed time bins of width
// intervalS seconds anchored at the epoch, and replaces each bin with the
// arithmetic mean of every channel, nulls excluded. Bins with no rows are
// omitted, never interpolated. The bin's left edge becomes the row
// timestamp; status notes do not survive averaging.
func Resample(rows []domain.Reading, intervalS int) []domain.Reading {
	if intervalS <= 0 {
		return rows
	}
	width := float64(intervalS)

	type agg struct {
		sums   map[string]float64
		counts map[string]int
	}
	var (
		order []float64
		bins  = make(map[float64]*agg)
	)
	for _, r := range rows {
		bin := math.Floor(r.Timestamp/width) * width
		a, ok := bins[bin]
		if !ok {
			a = &agg{sums: make(map[string]float64), counts: make(map[string]int)}
			bins[bin] = a
			order = append(order, bin)
		}
		for k, v := range r.Values {
			a.sums[k] += v
			a.counts[k]++
		}
	}

	out := make([]domain.Reading, 0, len(order))
	for _, bin := range order {
		a := bins[bin]
		r := domain.Reading{Timestamp: bin, Values: make(map[string]float64, len(a.sums))}
		for k, sum := range a.sums {
			r.Values[k] = sum / float64(a.counts[k])
		}
		out = append(out, r)
	}
	return out
}

func writeArtifact(path string, columns []string, rows []domain.Reading, req Request, anchor float64, anchored bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return err
	}

	header := make([]any, 0, len(columns)+3)
	header = append(header, "Datetime")
	for _, col := range columns {
		header = append(header, displayName(col, req.DisplayNames))
	}
	header = append(header, "Status", "EFT_seconds")
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, r := range rows {
		cells := make([]any, 0, len(columns)+3)
		cells = append(cells, domain.Time(r.Timestamp).UTC().Format(time.DateTime))
		for _, col := range columns {
			if v, ok := r.Value(col); ok {
				cells = append(cells, v)
			} else {
				cells = append(cells, nil)
			}
		}
		if r.Status != "" {
			cells = append(cells, r.Status)
		} else {
			cells = append(cells, nil)
		}
		if anchored {
			cells = append(cells, r.Timestamp-anchor)
		} else {
			cells = append(cells, NotStartedMarker)
		}
		if err := setRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(notesSheet); err != nil {
		return err
	}
	notes := fmt.Sprintf(
		"Data export from OpenUA Bioreactor Logger.\nExported Range: %s to %s.\nData Interval: %d seconds.",
		domain.Time(req.StartTS).UTC().Format(time.DateTime),
		domain.Time(req.EndTS).UTC().Format(time.DateTime),
		req.IntervalS,
	)
	if err := f.SetCellValue(notesSheet, "A1", "Notes"); err != nil {
		return err
	}
	if err := f.SetCellValue(notesSheet, "A2", notes); err != nil {
		return err
	}

	return f.SaveAs(path)
}

// displayName resolves a channel key to its export column name, deriving the
// " SP" suffix for setpoint counterparts of named channels.
func displayName(key string, names map[string]string) string {
	if name, ok := names[key]; ok {
		return name
	}
	if base, found := strings.CutSuffix(key, "_setpoint"); found {
		if name, ok := names[base]; ok {
			return name + " SP"
		}
	}
	return key
}

func setRow(f *excelize.File, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(dataSheet, cell, &cells)
}

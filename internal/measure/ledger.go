package measure

import (
	"time"

	"github.com/google/uuid"
)

// ScaleSource supplies the active micrometers-per-pixel factor, or nil when
// no calibration is set.
type ScaleSource interface {
	ScaleFactor() *float64
}

// ScaleFunc adapts a function to ScaleSource.
type ScaleFunc func() *float64

// ScaleFactor implements ScaleSource.
func (f ScaleFunc) ScaleFactor() *float64 { return f() }

// Ledger is the ordered collection of measurements of one document.
// It is owned by a single session and does no locking.
type Ledger struct {
	records []Measurement
	scale   ScaleSource
	labels  UnitLabels
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLabels selects the physical unit labels.
func WithLabels(labels UnitLabels) Option {
	return func(l *Ledger) { l.labels = labels }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates an empty ledger reading its scale from scale.
// A nil scale source behaves as "no calibration".
func NewLedger(scale ScaleSource, opts ...Option) *Ledger {
	l := &Ledger{
		scale:  scale,
		labels: CyrillicLabels,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Labels returns the unit labels used for physical values.
func (l *Ledger) Labels() UnitLabels {
	return l.labels
}

func (l *Ledger) currentScale() *float64 {
	if l.scale == nil {
		return nil
	}
	return l.scale.ScaleFactor()
}

// Add converts valuePx with the current scale and appends a new record.
func (l *Ledger) Add(kind Kind, valuePx float64, details Details) Measurement {
	valueUm, units := ConvertWith(l.labels, valuePx, kind, l.currentScale())
	m := Measurement{
		ID:        uuid.NewString(),
		Kind:      kind,
		ValuePx:   valuePx,
		ValueUm:   valueUm,
		Units:     units,
		Details:   details,
		CreatedAt: l.now(),
	}
	l.records = append(l.records, m)
	return m
}

// Delete removes the records at the given zero-based positions, resolved
// against the ledger as it is now. Duplicates and out-of-range indices are
// ignored. It returns the number of records removed.
func (l *Ledger) Delete(indices ...int) int {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(l.records) {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := l.records[:0:0]
	for i, m := range l.records {
		if _, ok := drop[i]; !ok {
			kept = append(kept, m)
		}
	}
	l.records = kept
	return len(drop)
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.records = nil
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// At returns a copy of the record at index i.
func (l *Ledger) At(i int) (Measurement, bool) {
	if i < 0 || i >= len(l.records) {
		return Measurement{}, false
	}
	return cloneRecords(l.records[i : i+1])[0], true
}

// Records returns a copy of all records in insertion order.
func (l *Ledger) Records() []Measurement {
	return cloneRecords(l.records)
}

// Restore replaces the ledger contents, e.g. with records read from a project file.
func (l *Ledger) Restore(records []Measurement) {
	l.records = cloneRecords(records)
}

// RecalculateWithScale re-derives ValueUm and Units of every record from its
// stored ValuePx and umPerPx, updates the ledger and returns a copy.
func (l *Ledger) RecalculateWithScale(umPerPx *float64) []Measurement {
	l.records = RecalculateWith(l.labels, l.records, umPerPx)
	return cloneRecords(l.records)
}

// Recalculate applies RecalculateWith using CyrillicLabels.
func Recalculate(records []Measurement, umPerPx *float64) []Measurement {
	return RecalculateWith(CyrillicLabels, records, umPerPx)
}

// RecalculateWith returns new records converted at umPerPx. The input is not
// modified and ValuePx is copied unchanged, so repeated calls are idempotent.
func RecalculateWith(labels UnitLabels, records []Measurement, umPerPx *float64) []Measurement {
	out := cloneRecords(records)
	for i := range out {
		out[i].ValueUm, out[i].Units = ConvertWith(labels, out[i].ValuePx, out[i].Kind, umPerPx)
	}
	return out
}

func cloneRecords(records []Measurement) []Measurement {
	if records == nil {
		return nil
	}
	out := make([]Measurement, len(records))
	for i, m := range records {
		if m.ValueUm != nil {
			v := *m.ValueUm
			m.ValueUm = &v
		}
		out[i] = m
	}
	return out
}

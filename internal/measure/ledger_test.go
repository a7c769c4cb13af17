package measure

import (
	"encoding/json"
	"testing"
	"time"

	"histo-analyzer/internal/morphometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedScale is a mutable ScaleSource for tests.
type fixedScale struct {
	v *float64
}

func (s *fixedScale) ScaleFactor() *float64 { return s.v }

func TestConvert(t *testing.T) {
	for _, v := range []float64{0, 1, 10, 123.456} {
		for _, s := range []float64{0.25, 0.5, 2.0} {
			got, unit := Convert(v, KindLine, Float(s))
			require.NotNil(t, got)
			assert.Equal(t, v*s, *got)
			assert.Equal(t, "мкм", unit)

			got, unit = Convert(v, KindArea, Float(s))
			require.NotNil(t, got)
			assert.Equal(t, v*s*s, *got)
			assert.Equal(t, "мкм²", unit)
		}
	}
}

func TestConvert_NoScale(t *testing.T) {
	tests := []struct {
		kind Kind
		unit string
	}{
		{KindLine, "px"},
		{KindPolyline, "px"},
		{KindThickness, "px"},
		{KindArea, "px²"},
		{Kind("perimeter"), "px"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			v, unit := Convert(10, tt.kind, nil)
			assert.Nil(t, v)
			assert.Equal(t, tt.unit, unit)
		})
	}
}

func TestConvert_UnknownKindIsLengthLike(t *testing.T) {
	v, unit := ConvertWith(GreekLabels, 10, Kind("diameter"), Float(0.5))
	require.NotNil(t, v)
	assert.Equal(t, 5.0, *v)
	assert.Equal(t, "μm", unit)
}

func TestLabelsByName(t *testing.T) {
	assert.Equal(t, GreekLabels, LabelsByName("greek"))
	assert.Equal(t, CyrillicLabels, LabelsByName("cyrillic"))
	assert.Equal(t, CyrillicLabels, LabelsByName(""))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.234568, Round(1.2345678))
	assert.Equal(t, 2.0, Round(2))
}

func TestLedger_EndToEnd(t *testing.T) {
	scale := &fixedScale{}
	l := NewLedger(scale)

	m := l.Add(KindLine, 10, PointCountDetails(2))
	assert.Nil(t, m.ValueUm)
	assert.Equal(t, "px", m.Units)
	assert.NotEmpty(t, m.ID)

	scale.v = Float(0.5)
	out := l.RecalculateWithScale(scale.v)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].ValueUm)
	assert.Equal(t, 5.0, *out[0].ValueUm)
	assert.Equal(t, "мкм", out[0].Units)
	assert.Equal(t, 10.0, out[0].ValuePx)

	stored, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, 5.0, *stored.ValueUm)
	assert.Equal(t, m.ID, stored.ID)
}

func TestLedger_AddUsesActiveScale(t *testing.T) {
	scale := &fixedScale{v: Float(2)}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := NewLedger(scale, WithLabels(GreekLabels), WithClock(func() time.Time { return now }))

	m := l.Add(KindArea, 3, PointCountDetails(4))
	require.NotNil(t, m.ValueUm)
	assert.Equal(t, 12.0, *m.ValueUm)
	assert.Equal(t, "μm²", m.Units)
	assert.Equal(t, now, m.CreatedAt)
}

func TestRecalculate_Idempotent(t *testing.T) {
	records := []Measurement{
		{Kind: KindLine, ValuePx: 20},
		{Kind: KindArea, ValuePx: 7.123456789},
		{Kind: Kind("custom"), ValuePx: 0.1},
	}
	for _, s := range []*float64{nil, Float(0.5), Float(0.333)} {
		once := Recalculate(records, s)
		twice := Recalculate(once, s)
		assert.Equal(t, once, twice)
		for i := range records {
			assert.Equal(t, records[i].ValuePx, twice[i].ValuePx)
		}
	}

	l := NewLedger(nil)
	l.Restore(records)
	for i := 0; i < 50; i++ {
		l.RecalculateWithScale(Float(0.37))
	}
	for i, m := range l.Records() {
		assert.Equal(t, records[i].ValuePx, m.ValuePx)
	}
}

func TestRecalculate_ScaleSwitchKeepsPixels(t *testing.T) {
	records := []Measurement{{Kind: KindLine, ValuePx: 20, Details: NoteDetails("x")}}

	out1 := Recalculate(records, Float(0.5))
	out2 := Recalculate(records, Float(1.0))

	assert.Equal(t, out1[0].ValuePx, out2[0].ValuePx)
	assert.Equal(t, 10.0, *out1[0].ValueUm)
	assert.NotEqual(t, *out1[0].ValueUm, *out2[0].ValueUm)
	assert.Nil(t, records[0].ValueUm, "input must not be modified")
}

func TestLedger_Delete(t *testing.T) {
	l := NewLedger(nil)
	for i := 0; i < 5; i++ {
		l.Add(KindLine, float64(i), Details{})
	}

	removed := l.Delete(1, 3, 3, 99, -1)
	assert.Equal(t, 2, removed)
	require.Equal(t, 3, l.Len())

	var values []float64
	for _, m := range l.Records() {
		values = append(values, m.ValuePx)
	}
	assert.Equal(t, []float64{0, 2, 4}, values)

	assert.Equal(t, 0, l.Delete())
	l.Clear()
	assert.Equal(t, 0, l.Len())
	_, ok := l.At(0)
	assert.False(t, ok)
}

func TestLedger_RecordsAreCopies(t *testing.T) {
	l := NewLedger(&fixedScale{v: Float(1)})
	l.Add(KindLine, 4, Details{})

	recs := l.Records()
	*recs[0].ValueUm = 999
	recs[0].ValuePx = 999

	m, _ := l.At(0)
	assert.Equal(t, 4.0, m.ValuePx)
	assert.Equal(t, 4.0, *m.ValueUm)
}

func TestSummary(t *testing.T) {
	scale := &fixedScale{}
	l := NewLedger(scale)
	l.Add(KindArea, 4, Details{})
	l.Add(KindArea, 6, Details{})
	l.Add(KindThickness, 2, Details{})
	l.Add(KindThickness, 4, Details{})
	l.Add(KindThickness, 9, Details{})
	l.Add(KindLine, 100, Details{})

	s := l.Summary()
	assert.Equal(t, 6, s.Count)
	assert.Equal(t, 10.0, s.TotalAreaPx)
	assert.Nil(t, s.TotalAreaUm)
	assert.Equal(t, 3, s.ThicknessCount)
	assert.Equal(t, 5.0, s.ThicknessMeanPx)
	assert.Equal(t, 4.0, s.ThicknessMedianPx)

	scale.v = Float(0.5)
	s = l.Summary()
	require.NotNil(t, s.TotalAreaUm)
	assert.Equal(t, 2.5, *s.TotalAreaUm)
	assert.Equal(t, 2.5, *s.ThicknessMeanUm)
	assert.Equal(t, 2.0, *s.ThicknessMedianUm)
}

func TestDetails(t *testing.T) {
	d := DistributionDetails(morphometry.Distribution{Mean: 5, Median: 5, Min: 4, Max: 6})
	assert.Equal(t, "mean=5.00; median=5.00; min=4.00; max=6.00", d.String())
	assert.Equal(t, "n=3", PointCountDetails(3).String())

	data, err := json.Marshal(PointCountDetails(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"point_count": 3}`, string(data))

	var legacy Details
	require.NoError(t, json.Unmarshal([]byte(`"median=1.00; min=0.5"`), &legacy))
	assert.Equal(t, "median=1.00; min=0.5", legacy.Note)

	var structured Details
	require.NoError(t, json.Unmarshal([]byte(`{"point_count": 7, "note": "x"}`), &structured))
	require.NotNil(t, structured.PointCount)
	assert.Equal(t, 7, *structured.PointCount)
	assert.Equal(t, "n=7; x", structured.String())
}

package calibration

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"histo-analyzer/internal/prefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUmPerPxFromDivisions(t *testing.T) {
	// 100 divisions of 10 µm across 500 px.
	assert.Equal(t, 2.0, UmPerPxFromDivisions(500.0, 100, 10.0))

	huge := UmPerPxFromDivisions(0, 100, 10.0)
	assert.False(t, math.IsInf(huge, 0))
	assert.Greater(t, huge, 1e9)
}

func TestLineScale(t *testing.T) {
	assert.Equal(t, 0.5, LineScale(200, 100))
	assert.False(t, math.IsInf(LineScale(0, 100), 0))
}

func TestCalibrationStats(t *testing.T) {
	st := CalibrationStats([]float64{500, 505, 495}, 100, 10.0)
	assert.InEpsilon(t, 2.0, st.UmPerPx, 0.03)
	assert.Greater(t, st.SD, 0.0)
	assert.Equal(t, 3, st.NRepeats)
	require.Len(t, st.PerTrial, 3)
	assert.Equal(t, 2.0, st.PerTrial[0])

	// Population standard deviation divides by k.
	st = CalibrationStats([]float64{500, 250}, 100, 10.0)
	assert.InDelta(t, 3.0, st.UmPerPx, 1e-12)
	assert.InDelta(t, 1.0, st.SD, 1e-12)

	single := CalibrationStats([]float64{400}, 100, 10.0)
	assert.Equal(t, 2.5, single.UmPerPx)
	assert.Equal(t, 0.0, single.SD)
	assert.Equal(t, 1, single.NRepeats)

	assert.Equal(t, Stats{}, CalibrationStats(nil, 100, 10))
}

func TestSourceHash(t *testing.T) {
	h := SourceHash([]byte("pixels"))
	assert.Len(t, h, 16)
	assert.Equal(t, h, SourceHash([]byte("pixels")))
	assert.NotEqual(t, h, SourceHash([]byte("pixelz")))
}

func TestNewProfile(t *testing.T) {
	_, err := NewProfile(Profile{Name: "", UmPerPx: 1})
	assert.ErrorIs(t, err, ErrProfileName)

	for _, bad := range []float64{0, -1, math.Inf(1), math.NaN()} {
		_, err := NewProfile(Profile{Name: "x", UmPerPx: bad})
		assert.ErrorIs(t, err, ErrInvalidScale)
	}

	p, err := NewProfile(Profile{Name: "x", UmPerPx: 0.65})
	require.NoError(t, err)
	assert.Equal(t, 1, p.NRepeats)
}

func TestMicrometerProfile(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Micrometer{Objective: "10x", UmPerDivision: 10, NDivisions: 100, PxDistances: []float64{500, 505, 495}}

	p, err := m.Profile("10x", "abc", at)
	require.NoError(t, err)
	assert.Equal(t, MethodMicrometer, p.Method)
	assert.Equal(t, 3, p.NRepeats)
	assert.Equal(t, "abc", p.SourceHash)
	assert.InEpsilon(t, 2.0, p.UmPerPx, 0.03)

	_, err = Micrometer{NDivisions: 100, UmPerDivision: 10}.Profile("empty", "", at)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestLineProfile(t *testing.T) {
	p, err := LineProfile("4x", "4x", 400, 100, "h", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.25, p.UmPerPx)
	assert.Equal(t, MethodLine, p.Method)
	assert.Equal(t, 1, p.NRepeats)
	assert.Equal(t, 0.0, p.SD)
}

func TestProfileRoundTrip(t *testing.T) {
	p := Profile{
		Name:       "10x",
		Objective:  "10x",
		UmPerPx:    0.65,
		Date:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SourceHash: "abc",
		Method:     MethodMicrometer,
		NRepeats:   3,
		SD:         0.01,
	}

	p2, err := FromRecord(p.Record())
	require.NoError(t, err)
	assert.Equal(t, p.Name, p2.Name)
	assert.Equal(t, p.UmPerPx, p2.UmPerPx)
	assert.True(t, p.Date.Equal(p2.Date))

	data, err := json.Marshal(p)
	require.NoError(t, err)
	var p3 Profile
	require.NoError(t, json.Unmarshal(data, &p3))
	assert.Equal(t, p.Name, p3.Name)
	assert.Equal(t, p.UmPerPx, p3.UmPerPx)
}

func TestFromRecord_LegacyFields(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"name":"10x","um_per_px":0.5,"date":"2026-01-01T00:00:00"}`), &p))
	assert.Equal(t, MethodMicrometer, p.Method)
	assert.Equal(t, 1, p.NRepeats)
	assert.Equal(t, 2026, p.Date.Year())

	err := json.Unmarshal([]byte(`{"name":"bad","um_per_px":0}`), &p)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestProfileSet(t *testing.T) {
	a1 := Profile{Name: "a", UmPerPx: 1}
	a2 := Profile{Name: "a", UmPerPx: 2}
	b := Profile{Name: "b", UmPerPx: 3}

	s := NewProfileSet(b, a1)
	s.Put(a2)
	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, got.UmPerPx, "last write wins")

	list := s.List()
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)

	other := NewProfileSet(Profile{Name: "b", UmPerPx: 9}, Profile{Name: "c", UmPerPx: 4})
	s.Merge(other)
	assert.Equal(t, 3, s.Len())
	got, _ = s.Get("b")
	assert.Equal(t, 9.0, got.UmPerPx)

	assert.True(t, s.Delete("c"))
	assert.False(t, s.Delete("c"))
	s.Merge(nil)
	assert.Equal(t, 2, s.Len())
}

func TestActiveScale(t *testing.T) {
	var a ActiveScale
	assert.False(t, a.IsSet())
	assert.Nil(t, a.ScaleFactor())
	assert.Equal(t, "none", a.String())

	require.NoError(t, a.Set(0.5, ModeLine))
	assert.Equal(t, 0.5, *a.ScaleFactor())
	assert.Equal(t, ModeLine, a.Mode)

	assert.ErrorIs(t, a.Set(0, ModeLine), ErrInvalidScale)
	assert.Equal(t, 0.5, *a.ScaleFactor(), "failed set keeps previous scale")

	a.Select(Profile{Name: "10x", UmPerPx: 0.65})
	assert.Equal(t, ModeProfile, a.Mode)
	assert.Equal(t, "10x", a.ProfileName)
	assert.Equal(t, 0.65, *a.UmPerPx)
	assert.Contains(t, a.String(), `profile "10x"`)

	a.Clear()
	assert.Nil(t, a.UmPerPx)
	assert.Equal(t, ModeNone, a.Mode)
	assert.Empty(t, a.ProfileName)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeProfile, ParseMode("profile"))
	assert.Equal(t, ModeLine, ParseMode("line"))
	assert.Equal(t, ModeNone, ParseMode(""))
	assert.Equal(t, ModeNone, ParseMode("bogus"))
}

func TestLibrary(t *testing.T) {
	store := prefs.NewMemory()
	lib, err := OpenLibrary(store)
	require.NoError(t, err)
	assert.Empty(t, lib.List())

	require.NoError(t, lib.Save(Profile{Name: "10x", UmPerPx: 0.65, NRepeats: 3}))
	require.NoError(t, lib.Save(Profile{Name: "10x", UmPerPx: 0.66, NRepeats: 3}))
	require.NoError(t, lib.Save(Profile{Name: "40x", UmPerPx: 0.16, NRepeats: 1}))
	assert.Error(t, lib.Save(Profile{Name: "bad", UmPerPx: -1}))

	reopened, err := OpenLibrary(store)
	require.NoError(t, err)
	require.Len(t, reopened.List(), 2)
	p, ok := reopened.Get("10x")
	require.True(t, ok)
	assert.Equal(t, 0.66, p.UmPerPx)

	require.NoError(t, reopened.Delete("40x"))
	err = reopened.Delete("40x")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	require.NoError(t, reopened.Merge(NewProfileSet(Profile{Name: "20x", UmPerPx: 0.33, NRepeats: 1})))
	require.NoError(t, lib.Reload())
	assert.Len(t, lib.List(), 2)

	snap := lib.Snapshot()
	snap.Delete("10x")
	_, ok = lib.Get("10x")
	assert.True(t, ok, "snapshot is independent")
}

// brokenStore reads from memory but fails every write once broken is set.
type brokenStore struct {
	*prefs.Memory
	broken bool
}

func (s *brokenStore) Set(key, value string) error {
	if s.broken {
		return errors.New("disk full")
	}
	return s.Memory.Set(key, value)
}

func TestLibrary_StoreFailureKeepsSet(t *testing.T) {
	store := &brokenStore{Memory: prefs.NewMemory()}
	lib, err := OpenLibrary(store)
	require.NoError(t, err)
	require.NoError(t, lib.Save(Profile{Name: "10x", UmPerPx: 0.65, NRepeats: 1}))

	store.broken = true
	assert.Error(t, lib.Save(Profile{Name: "40x", UmPerPx: 0.16, NRepeats: 1}))
	_, ok := lib.Get("40x")
	assert.False(t, ok)

	assert.Error(t, lib.Delete("10x"))
	_, ok = lib.Get("10x")
	assert.True(t, ok)

	assert.Error(t, lib.Merge(NewProfileSet(Profile{Name: "10x", UmPerPx: 0.7, NRepeats: 1})))
	p, ok := lib.Get("10x")
	require.True(t, ok)
	assert.Equal(t, 0.65, p.UmPerPx)

	store.broken = false
	require.NoError(t, lib.Reload())
	assert.Len(t, lib.List(), 1)
}

func TestLibrary_SkipsInvalidRecords(t *testing.T) {
	store := prefs.NewMemory()
	require.NoError(t, store.Set(StoreKey, `[{"name":"ok","um_per_px":1},{"name":"bad","um_per_px":-2}]`))

	lib, err := OpenLibrary(store)
	require.NoError(t, err)
	require.Len(t, lib.List(), 1)
	assert.Equal(t, "ok", lib.List()[0].Name)

	require.NoError(t, store.Set(StoreKey, `not json`))
	_, err = OpenLibrary(store)
	assert.Error(t, err)
}

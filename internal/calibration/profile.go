package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidScale is returned for a scale that is not a positive finite number.
	ErrInvalidScale = errors.New("calibration: um_per_px must be a positive finite number")
	// ErrProfileName is returned for a profile without a name.
	ErrProfileName = errors.New("calibration: profile name is empty")
	// ErrProfileNotFound is returned when selecting an unknown profile.
	ErrProfileNotFound = errors.New("calibration: profile not found")
)

// Method names the procedure a scale was derived with.
type Method string

const (
	MethodLine       Method = "line"
	MethodMicrometer Method = "micrometer"
)

// ValidScale reports whether v can be used as a micrometers-per-pixel factor.
func ValidScale(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Profile is a named, reusable calibration. Profiles are values: recalibrating
// produces a new Profile stored under the same name.
type Profile struct {
	Name       string
	Objective  string
	UmPerPx    float64
	Date       time.Time
	SourceHash string
	Method     Method
	NRepeats   int
	SD         float64
}

// NewProfile validates p and returns it. NRepeats below 1 is raised to 1.
func NewProfile(p Profile) (Profile, error) {
	if p.Name == "" {
		return Profile{}, ErrProfileName
	}
	if !ValidScale(p.UmPerPx) {
		return Profile{}, fmt.Errorf("profile %q: %w", p.Name, ErrInvalidScale)
	}
	if p.NRepeats < 1 {
		p.NRepeats = 1
	}
	return p, nil
}

// Micrometer describes a stage micrometer calibration session.
type Micrometer struct {
	Objective     string
	UmPerDivision float64
	NDivisions    int
	PxDistances   []float64
}

// Stats aggregates the session's trials.
func (m Micrometer) Stats() Stats {
	return CalibrationStats(m.PxDistances, m.NDivisions, m.UmPerDivision)
}

// Profile builds a named micrometer profile fingerprinted with sourceHash.
func (m Micrometer) Profile(name, sourceHash string, at time.Time) (Profile, error) {
	st := m.Stats()
	return NewProfile(Profile{
		Name:       name,
		Objective:  m.Objective,
		UmPerPx:    st.UmPerPx,
		Date:       at,
		SourceHash: sourceHash,
		Method:     MethodMicrometer,
		NRepeats:   st.NRepeats,
		SD:         st.SD,
	})
}

// LineProfile builds a single-trial profile from a drawn reference line.
func LineProfile(name, objective string, pxDistance, realUm float64, sourceHash string, at time.Time) (Profile, error) {
	return NewProfile(Profile{
		Name:       name,
		Objective:  objective,
		UmPerPx:    LineScale(pxDistance, realUm),
		Date:       at,
		SourceHash: sourceHash,
		Method:     MethodLine,
		NRepeats:   1,
	})
}

// Record is the flat, persisted form of a Profile.
type Record struct {
	Name            string  `json:"name"`
	Objective       string  `json:"objective"`
	UmPerPx         float64 `json:"um_per_px"`
	Date            string  `json:"date"`
	SourceImageHash string  `json:"source_image_hash"`
	Method          string  `json:"method"`
	NRepeats        int     `json:"n_repeats"`
	SD              float64 `json:"sd"`
}

// dateLayouts are accepted when reading records; older files omit the zone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Record returns the persisted form of p.
func (p Profile) Record() Record {
	var date string
	if !p.Date.IsZero() {
		date = p.Date.Format(time.RFC3339)
	}
	return Record{
		Name:            p.Name,
		Objective:       p.Objective,
		UmPerPx:         p.UmPerPx,
		Date:            date,
		SourceImageHash: p.SourceHash,
		Method:          string(p.Method),
		NRepeats:        p.NRepeats,
		SD:              p.SD,
	}
}

// FromRecord validates a persisted record and returns the Profile. An empty
// method defaults to micrometer and an unparseable date is left zero.
func FromRecord(r Record) (Profile, error) {
	p := Profile{
		Name:       r.Name,
		Objective:  r.Objective,
		UmPerPx:    r.UmPerPx,
		SourceHash: r.SourceImageHash,
		Method:     Method(r.Method),
		NRepeats:   r.NRepeats,
		SD:         r.SD,
	}
	if p.Method == "" {
		p.Method = MethodMicrometer
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, r.Date); err == nil {
			p.Date = t
			break
		}
	}
	return NewProfile(p)
}

// MarshalJSON encodes the profile as its Record.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Record())
}

// UnmarshalJSON decodes and validates a Record.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	prof, err := FromRecord(r)
	if err != nil {
		return err
	}
	*p = prof
	return nil
}

// ProfileSet maps unique names to profiles.
type ProfileSet struct {
	profiles map[string]Profile
}

// NewProfileSet returns a set holding profiles; later duplicates replace earlier ones.
func NewProfileSet(profiles ...Profile) *ProfileSet {
	s := &ProfileSet{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		s.Put(p)
	}
	return s
}

// Put stores p under its name, replacing any profile with the same name.
func (s *ProfileSet) Put(p Profile) {
	s.profiles[p.Name] = p
}

// Get returns the profile called name.
func (s *ProfileSet) Get(name string) (Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// Delete removes the profile called name and reports whether it existed.
func (s *ProfileSet) Delete(name string) bool {
	_, ok := s.profiles[name]
	delete(s.profiles, name)
	return ok
}

// Len returns the number of profiles.
func (s *ProfileSet) Len() int {
	return len(s.profiles)
}

// List returns all profiles sorted by name.
func (s *ProfileSet) List() []Profile {
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Merge adds every profile of other; on a name clash the profile from other wins.
func (s *ProfileSet) Merge(other *ProfileSet) {
	if other == nil {
		return
	}
	for _, p := range other.profiles {
		s.Put(p)
	}
}

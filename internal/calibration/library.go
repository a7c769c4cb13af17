package calibration

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"histo-analyzer/internal/prefs"
)

// StoreKey is the preference key the profile set is persisted under.
const StoreKey = "calibration_profiles"

// Library is the process-wide profile set, persisted through a prefs.Store so
// profiles survive across documents.
type Library struct {
	store prefs.Store
	set   *ProfileSet
}

// OpenLibrary loads the profile set from store. Records that fail validation
// are skipped with a warning rather than failing the whole load.
func OpenLibrary(store prefs.Store) (*Library, error) {
	l := &Library{store: store, set: NewProfileSet()}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewSessionLibrary returns an empty library kept in memory only.
func NewSessionLibrary() *Library {
	return &Library{store: prefs.NewMemory(), set: NewProfileSet()}
}

// Reload re-reads the profile set from the store.
func (l *Library) Reload() error {
	raw, ok, err := l.store.Get(StoreKey)
	if err != nil {
		return fmt.Errorf("load calibration profiles: %w", err)
	}
	set := NewProfileSet()
	if ok && raw != "" {
		var records []Record
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			return fmt.Errorf("parse calibration profiles: %w", err)
		}
		for _, r := range records {
			p, err := FromRecord(r)
			if err != nil {
				slog.Warn("skipping invalid calibration profile", "name", r.Name, "error", err)
				continue
			}
			set.Put(p)
		}
	}
	l.set = set
	return nil
}

// Get returns the profile called name.
func (l *Library) Get(name string) (Profile, bool) {
	return l.set.Get(name)
}

// List returns all profiles sorted by name.
func (l *Library) List() []Profile {
	return l.set.List()
}

// Save stores p, replacing any profile of the same name, and persists the set.
func (l *Library) Save(p Profile) error {
	if _, err := NewProfile(p); err != nil {
		return err
	}
	next := l.Snapshot()
	next.Put(p)
	if err := l.commit(next); err != nil {
		return err
	}
	slog.Debug("calibration profile saved", "name", p.Name, "um_per_px", p.UmPerPx, "method", p.Method)
	return nil
}

// Delete removes the profile called name and persists the set.
func (l *Library) Delete(name string) error {
	next := l.Snapshot()
	if !next.Delete(name) {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return l.commit(next)
}

// Merge adds every profile of other (other wins on name clash) and persists.
func (l *Library) Merge(other *ProfileSet) error {
	if other == nil || other.Len() == 0 {
		return nil
	}
	next := l.Snapshot()
	next.Merge(other)
	return l.commit(next)
}

// Snapshot returns an independent copy of the profile set.
func (l *Library) Snapshot() *ProfileSet {
	return NewProfileSet(l.set.List()...)
}

// commit persists next and only then makes it the live set, so a store
// failure leaves the library unchanged.
func (l *Library) commit(next *ProfileSet) error {
	profiles := next.List()
	records := make([]Record, len(profiles))
	for i, p := range profiles {
		records[i] = p.Record()
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := l.store.Set(StoreKey, string(data)); err != nil {
		return fmt.Errorf("persist calibration profiles: %w", err)
	}
	l.set = next
	return nil
}

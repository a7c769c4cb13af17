package prefs

import "fyne.io/fyne/v2"

// Preferences adapts the preferences of a fyne application to Store, so the
// desktop front end shares profiles with its other settings.
type Preferences struct {
	p fyne.Preferences
}

// NewPreferences wraps p.
func NewPreferences(p fyne.Preferences) *Preferences {
	return &Preferences{p: p}
}

// Get implements Store. fyne has no presence check, so an empty string is
// reported as missing.
func (f *Preferences) Get(key string) (string, bool, error) {
	v := f.p.String(key)
	return v, v != "", nil
}

// Set implements Store.
func (f *Preferences) Set(key, value string) error {
	f.p.SetString(key, value)
	return nil
}

// Delete implements Store.
func (f *Preferences) Delete(key string) error {
	f.p.RemoveValue(key)
	return nil
}

// Package project provides project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/measure"
	"histo-analyzer/pkg/geometry"
)

// CurrentVersion is written into every saved project.
const CurrentVersion = 1

// File represents a histology project file (.histo).
type File struct {
	Version  int       `json:"version"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Source image (relative to the project file when possible)
	ImagePath string `json:"image_path,omitempty"`
	ImageHash string `json:"image_hash,omitempty"`

	// Segmentation mask written by the segmentation collaborator
	MaskPath string `json:"mask_path,omitempty"`

	Annotations  []Annotation          `json:"annotations"`
	Measurements []measure.Measurement `json:"measurements"`

	// Calibration state
	UmPerPx                  *float64             `json:"um_per_px"`
	ScaleMode                string               `json:"scale_mode,omitempty"`
	ActiveCalibrationProfile *string              `json:"active_calibration_profile"`
	CalibrationProfiles      []calibration.Record `json:"calibration_profiles"`
}

// Annotation is a drawn shape kept with the project, such as a thickness boundary.
type Annotation struct {
	Type   string             `json:"type"`
	Points []geometry.Point2D `json:"points"`
}

// New creates an empty project.
func New() *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Created:  now,
		Modified: now,
	}
}

// Load loads a project file. Missing fields default to empty values.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	if proj.Version == 0 {
		proj.Version = CurrentVersion
	}
	if proj.UmPerPx != nil && !calibration.ValidScale(*proj.UmPerPx) {
		proj.UmPerPx = nil
	}

	return &proj, nil
}

// Save rounds stored values to 6 decimals and writes the project to path.
func (p *File) Save(path string) error {
	p.Modified = time.Now()
	p.roundValues()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// roundValues applies persistence rounding to every numeric measurement field.
func (p *File) roundValues() {
	for i := range p.Measurements {
		m := &p.Measurements[i]
		m.ValuePx = measure.Round(m.ValuePx)
		if m.ValueUm != nil {
			v := measure.Round(*m.ValueUm)
			m.ValueUm = &v
		}
	}
}

// Profiles returns the embedded calibration profiles. Invalid records are
// returned separately so callers can report them.
func (p *File) Profiles() (*calibration.ProfileSet, []error) {
	set := calibration.NewProfileSet()
	var errs []error
	for _, r := range p.CalibrationProfiles {
		prof, err := calibration.FromRecord(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set.Put(prof)
	}
	return set, errs
}

// SetProfiles replaces the embedded calibration profiles.
func (p *File) SetProfiles(profiles []calibration.Profile) {
	p.CalibrationProfiles = make([]calibration.Record, len(profiles))
	for i, prof := range profiles {
		p.CalibrationProfiles[i] = prof.Record()
	}
}

// SetImage sets the image path (relative to project).
func (p *File) SetImage(projectPath, imagePath string) {
	p.ImagePath = relativeTo(projectPath, imagePath)
}

// SetMask sets the mask path (relative to project).
func (p *File) SetMask(projectPath, maskPath string) {
	p.MaskPath = relativeTo(projectPath, maskPath)
}

// GetImagePath returns the absolute path to the source image.
func (p *File) GetImagePath(projectPath string) string {
	return resolve(projectPath, p.ImagePath)
}

// GetMaskPath returns the absolute path to the mask, defaulting to
// <project>/mask.png next to the project file.
func (p *File) GetMaskPath(projectPath string) string {
	if p.MaskPath == "" {
		base := projectPath[:len(projectPath)-len(filepath.Ext(projectPath))]
		return filepath.Join(base, "mask.png")
	}
	return resolve(projectPath, p.MaskPath)
}

func relativeTo(projectPath, target string) string {
	if target == "" {
		return ""
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	dir, err := filepath.Abs(filepath.Dir(projectPath))
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return abs
	}
	return rel
}

func resolve(projectPath, stored string) string {
	if stored == "" {
		return ""
	}
	if filepath.IsAbs(stored) {
		return stored
	}
	return filepath.Join(filepath.Dir(projectPath), stored)
}

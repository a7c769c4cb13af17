package app

import (
	"fmt"
	"log/slog"

	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/project"
	"histo-analyzer/pkg/geometry"
)

// SaveProject writes the session to path. Every library profile is embedded
// so the project stays portable.
func (s *State) SaveProject(path string) error {
	proj := project.New()
	if !s.Created.IsZero() {
		proj.Created = s.Created
	}
	proj.SetImage(path, s.ImagePath)
	proj.ImageHash = s.ImageHash()
	proj.SetMask(path, s.MaskPath)
	proj.Annotations = cloneAnnotations(s.Annotations)
	proj.Measurements = s.Ledger.Records()

	if v := s.Scale.ScaleFactor(); v != nil {
		scale := *v
		proj.UmPerPx = &scale
	}
	proj.ScaleMode = string(s.Scale.Mode)
	if s.Scale.ProfileName != "" {
		name := s.Scale.ProfileName
		proj.ActiveCalibrationProfile = &name
	}
	proj.SetProfiles(s.Library.List())

	if err := proj.Save(path); err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	s.ProjectPath = path
	s.SetModified(false)
	slog.Info("project saved", "path", path, "measurements", len(proj.Measurements))
	s.Emit(EventProjectSaved, path)
	return nil
}

// LoadProject replaces the session with the project at path. The project's
// profiles are merged into the library, replacing same-named ones. The active
// profile is re-selected when known; otherwise the stored scale is restored.
func (s *State) LoadProject(path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	// Profiles merge before the session is replaced so a failed merge
	// leaves the open document untouched.
	set, errs := proj.Profiles()
	for _, e := range errs {
		slog.Warn("skipping invalid project profile", "path", path, "error", e)
	}
	if err := s.Library.Merge(set); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	s.reset()
	s.ProjectPath = path
	if !proj.Created.IsZero() {
		s.Created = proj.Created
	}
	s.loadImage(proj.GetImagePath(path))
	if s.Image != nil && proj.ImageHash != "" && proj.ImageHash != s.Image.Hash {
		slog.Warn("image content differs from project", "path", s.ImagePath, "expected", proj.ImageHash, "actual", s.Image.Hash)
	}
	if proj.MaskPath != "" {
		s.MaskPath = proj.GetMaskPath(path)
	}
	s.Annotations = cloneAnnotations(proj.Annotations)
	s.Ledger.Restore(proj.Measurements)

	if set.Len() > 0 {
		s.Emit(EventProfilesChanged, set.Len())
	}
	s.restoreScale(proj)
	s.Ledger.RecalculateWithScale(s.Scale.ScaleFactor())

	s.Modified = false
	slog.Info("project loaded", "path", path, "measurements", s.Ledger.Len(), "scale", s.Scale.String())
	s.Emit(EventProjectLoaded, path)
	return nil
}

func (s *State) restoreScale(proj *project.File) {
	if name := proj.ActiveCalibrationProfile; name != nil && *name != "" {
		if p, ok := s.Library.Get(*name); ok {
			s.Scale.Select(p)
			return
		}
		slog.Warn("active calibration profile not found", "profile", *name)
	}
	if proj.UmPerPx == nil {
		return
	}
	mode := calibration.ParseMode(proj.ScaleMode)
	if mode == calibration.ModeNone || mode == calibration.ModeProfile {
		mode = calibration.ModeLine
	}
	if err := s.Scale.Set(*proj.UmPerPx, mode); err != nil {
		slog.Warn("ignoring stored scale", "um_per_px", *proj.UmPerPx, "error", err)
	}
}

func cloneAnnotations(in []project.Annotation) []project.Annotation {
	if in == nil {
		return nil
	}
	out := make([]project.Annotation, len(in))
	for i, a := range in {
		out[i] = project.Annotation{Type: a.Type, Points: append([]geometry.Point2D(nil), a.Points...)}
	}
	return out
}

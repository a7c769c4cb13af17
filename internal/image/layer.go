// Package image loads source micrographs and fingerprints their pixel data.
package image

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"histo-analyzer/internal/calibration"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Source is a decoded source image.
type Source struct {
	Path  string      // Original file path
	Image image.Image // Decoded pixel data
	Hash  string      // Fingerprint of the RGBA pixel buffer

	// Resolution recorded in TIFF metadata, in pixels per inch. Zero if absent.
	DPI float64
}

// Load decodes the image at path and fingerprints it.
func Load(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	src := &Source{
		Path:  path,
		Image: img,
		Hash:  Fingerprint(img),
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if dpi, err := extractTIFFDPI(file); err == nil {
			src.DPI = dpi
		}
	}

	return src, nil
}

// Width returns the image width in pixels.
func (s *Source) Width() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (s *Source) Height() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// UmPerPxHint converts the TIFF resolution to micrometers per pixel.
// It reports false when the file carried no resolution.
func (s *Source) UmPerPxHint() (float64, bool) {
	if s.DPI <= 0 {
		return 0, false
	}
	return 25400 / s.DPI, true
}

// Fingerprint hashes the image's pixels normalized to an RGBA buffer, so the
// same picture yields the same value regardless of container format.
func Fingerprint(img image.Image) string {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return calibration.SourceHash(rgba.Pix)
}

// extractTIFFDPI reads the XResolution/YResolution tags of the first IFD.
func extractTIFFDPI(r io.ReadSeeker) (float64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var byteOrder binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		byteOrder = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		byteOrder = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(r, byteOrder, &numEntries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // inches

	entry := make([]byte, 12)
	for i := uint16(0); i < numEntries; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return 0, err
		}

		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueOffset := byteOrder.Uint32(entry[8:12])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 {
				xRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 283: // YResolution
			if fieldType == 5 {
				yRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 {
				resUnit = byteOrder.Uint16(entry[8:10])
			}
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}

	switch resUnit {
	case 3: // centimeters
		dpi *= 2.54
	case 1: // no absolute unit
		return 0, fmt.Errorf("resolution has no unit")
	}
	return dpi, nil
}

// readTIFFRational reads a RATIONAL value at offset and restores the position.
func readTIFFRational(r io.ReadSeeker, offset int64, byteOrder binary.ByteOrder) float64 {
	currentPos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	defer r.Seek(currentPos, io.SeekStart)

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var num, denom uint32
	if binary.Read(r, byteOrder, &num) != nil || binary.Read(r, byteOrder, &denom) != nil {
		return 0
	}
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

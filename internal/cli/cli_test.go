package cli

import (
	"bytes"
	"encoding/csv"
	goimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/version"
	"histo-analyzer/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command line with a profile file under dir. Later flags
// in args override the defaults.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{"--profiles-path=" + filepath.Join(dir, "prefs.json"), "--log-level=warn"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParsePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    []geometry.Point2D
		wantErr bool
	}{
		{"0,0 3,4", []geometry.Point2D{{X: 0, Y: 0}, {X: 3, Y: 4}}, false},
		{"1.5,2;  -1,0\n", []geometry.Point2D{{X: 1.5, Y: 2}, {X: -1, Y: 0}}, false},
		{"", nil, true},
		{"1,2,3", nil, true},
		{"a,1", nil, true},
	}
	for _, tt := range tests {
		got, err := parsePoints(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestMeasure_Standalone(t *testing.T) {
	out, err := run(t, t.TempDir(), "measure", "--kind", "line", "--points", "0,0 30,40", "--um-per-px", "0.5")
	require.NoError(t, err)
	assert.Equal(t, "line: 50 px, 25 мкм (n=2)\n", out)

	out, err = run(t, t.TempDir(), "measure", "--kind", "area", "--points", "0,0 10,0 10,10 0,10", "--units", "greek", "--um-per-px", "2")
	require.NoError(t, err)
	assert.Equal(t, "area: 100 px, 400 μm² (n=4)\n", out)

	out, err = run(t, t.TempDir(), "measure", "--kind", "area", "--points", "0,0 4,4", "--um-per-px", "2")
	require.NoError(t, err)
	assert.Equal(t, "area: 0 px, 0 мкм² (n=2)\n", out)

	_, err = run(t, t.TempDir(), "measure", "--kind", "circle", "--points", "0,0 1,1")
	assert.Error(t, err)
}

func TestThickness_Standalone(t *testing.T) {
	out, err := run(t, t.TempDir(), "thickness", "--a", "0,0 10,0", "--b", "0,4 10,4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "thickness: 4 px, - px"), out)
	assert.Contains(t, out, "median=4.00")
}

func TestCalibrateMicrometerAndProfiles(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "calibrate", "micrometer", "--name", "10x", "--objective", "10x",
		"--um-per-div", "10", "--divisions", "10", "--px", "200,200")
	require.NoError(t, err)
	assert.Contains(t, out, "um_per_px: 0.500000")
	assert.Contains(t, out, "n_repeats: 2")

	out, err = run(t, dir, "profiles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "10x")
	assert.Contains(t, out, "micrometer")

	out, err = run(t, dir, "measure", "--points", "0,0 10,0", "--profile", "10x")
	require.NoError(t, err)
	assert.Contains(t, out, "5 мкм")

	_, err = run(t, dir, "profiles", "delete", "10x")
	require.NoError(t, err)
	out, err = run(t, dir, "profiles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no calibration profiles")

	_, err = run(t, dir, "profiles", "delete", "10x")
	assert.Error(t, err)
}

func TestProjectWorkflow(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "slide.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, goimage.NewGray(goimage.Rect(0, 0, 8, 8))))
	require.NoError(t, f.Close())
	proj := filepath.Join(dir, "slide.histo")

	out, err := run(t, dir, "project", "new", proj, "--image", imgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "image: 8x8")

	_, err = run(t, dir, "project", "new", proj, "--image", imgPath)
	assert.Error(t, err, "existing project is not overwritten")

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("slide 4"), 0o644))
	other := filepath.Join(dir, "notes.histo")
	_, err = run(t, dir, "project", "new", other, "--image", notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
	assert.NoFileExists(t, other)

	_, err = run(t, dir, "measure", "--project", proj, "--kind", "polyline", "--points", "0,0 10,0 10,10")
	require.NoError(t, err)
	_, err = run(t, dir, "calibrate", "line", "--project", proj, "--px", "40", "--um", "10", "--name", "40x")
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "out.csv")
	_, err = run(t, dir, "export", "csv", proj, "-o", csvPath)
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"polyline", "20", "5", "n=3"}, rows[1])

	out, err = run(t, dir, "project", "show", proj)
	require.NoError(t, err)
	assert.Contains(t, out, "0.250000")
	assert.Contains(t, out, "Measurements (1)")

	out, err = run(t, dir, "profiles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "40x")

	_, err = run(t, dir, "profiles", "select", proj, "40x")
	require.NoError(t, err)
	out, err = run(t, dir, "export", "report", proj)
	require.NoError(t, err)
	assert.Contains(t, out, "40x")

	_, err = run(t, dir, "profiles", "clear", proj)
	require.NoError(t, err)
	out, err = run(t, dir, "export", "csv", proj)
	require.NoError(t, err)
	assert.Contains(t, out, "polyline,20,,n=3")

	_, err = run(t, dir, "project", "delete-measurements", proj, "1")
	require.NoError(t, err)
	out, err = run(t, dir, "export", "csv", proj)
	require.NoError(t, err)
	assert.Equal(t, "type,value_px,value_um,details\n", out)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, t.TempDir(), "version", "--profiles-backend", "redis")
	assert.Error(t, err)
}

func TestSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "profiles.db")
	_, err := run(t, dir, "calibrate", "micrometer", "--name", "4x", "--px", "100", "--divisions", "5",
		"--profiles-backend", "sqlite", "--profiles-path", db)
	require.NoError(t, err)

	out, err := run(t, dir, "profiles", "list", "--profiles-backend", "sqlite", "--profiles-path", db)
	require.NoError(t, err)
	assert.Contains(t, out, "4x")
}

func TestFyneBackend(t *testing.T) {
	a := test.NewApp()
	t.Cleanup(a.Quit)
	orig := newFyneApp
	newFyneApp = func() fyne.App { return a }
	t.Cleanup(func() { newFyneApp = orig })

	dir := t.TempDir()
	_, err := run(t, dir, "calibrate", "line", "--px", "200", "--um", "100", "--name", "20x",
		"--profiles-backend", "fyne")
	require.NoError(t, err)
	assert.Contains(t, a.Preferences().String(calibration.StoreKey), "20x")
	assert.NoFileExists(t, filepath.Join(dir, "prefs.json"))

	out, err := run(t, dir, "profiles", "list", "--profiles-backend", "fyne")
	require.NoError(t, err)
	assert.Contains(t, out, "20x")

	out, err = run(t, dir, "profiles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no calibration profiles")
}

func TestTissue_UnitLabels(t *testing.T) {
	dir := t.TempDir()
	mask := goimage.NewGray(goimage.Rect(0, 0, 4, 4))
	mask.SetGray(0, 0, color.Gray{Y: 255})
	mask.SetGray(1, 0, color.Gray{Y: 255})
	maskPath := filepath.Join(dir, "mask.png")
	f, err := os.Create(maskPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, mask))
	require.NoError(t, f.Close())

	out, err := run(t, dir, "tissue", "--mask", maskPath, "--um-per-px", "2", "--units", "greek")
	require.NoError(t, err)
	assert.Contains(t, out, "tissue:   2 px (12.50%)")
	assert.Contains(t, out, "area:     8 μm²")
	assert.NotContains(t, out, "мкм")
}

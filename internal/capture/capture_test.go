package capture

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrabber struct {
	bounds   []image.Rectangle
	err      error
	captured []image.Rectangle
}

func (f *fakeGrabber) NumDisplays() int { return len(f.bounds) }
func (f *fakeGrabber) Bounds(i int) image.Rectangle { return f.bounds[i] }
func (f *fakeGrabber) Capture(r image.Rectangle) (image.Image, error) {
	f.captured = append(f.captured, r)
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for x := 0; x < r.Dx(); x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}
	return img, nil
}

func newTestCapturer(t *testing.T, g *fakeGrabber, opts Options) *Capturer {
	t.Helper()
	opts.Dir = t.TempDir()
	c := New(opts)
	c.grab = g
	c.backoff = 0
	return c
}

func twoMonitors() *fakeGrabber {
	return &fakeGrabber{bounds: []image.Rectangle{
		image.Rect(0, 0, 40, 30),
		image.Rect(40, -10, 100, 30),
	}}
}

func TestCaptureCoversAllDisplays(t *testing.T) {
	g := twoMonitors()
	c := newTestCapturer(t, g, Options{})

	path, err := c.Capture()

	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasSuffix(path, ".png"))
	require.Len(t, g.captured, 1)
	assert.Equal(t, image.Rect(0, -10, 100, 30), g.captured[0])
}

func TestCaptureNamesAreUnique(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{})

	a, err := c.Capture()
	require.NoError(t, err)
	b, err := c.Capture()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCaptureWithoutDisplays(t *testing.T) {
	c := newTestCapturer(t, &fakeGrabber{}, Options{})

	_, err := c.Capture()

	assert.ErrorIs(t, err, ErrNoDisplay)
	assert.Equal(t, []Display{{Index: 0, Width: 1920, Height: 1080}}, c.Displays())
}

func TestCaptureDisplayClampsIndex(t *testing.T) {
	g := twoMonitors()
	c := newTestCapturer(t, g, Options{})

	_, err := c.CaptureDisplay(7)

	require.NoError(t, err)
	assert.Equal(t, g.bounds[0], g.captured[0])
	assert.Equal(t, Display{Index: 1, Left: 40, Top: -10, Width: 60, Height: 40}, c.Displays()[1])
}

func TestCheckPermission(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{})
	assert.True(t, c.CheckPermission())

	entries, err := os.ReadDir(c.opts.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "permission probe must not leave files behind")

	denied := newTestCapturer(t, &fakeGrabber{bounds: []image.Rectangle{image.Rect(0, 0, 1, 1)}, err: errors.New("denied")}, Options{})
	assert.False(t, denied.CheckPermission())
}

func TestCompressWritesJPEG(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{JPEGQuality: 50, MaxWidth: 20})
	path, err := c.Capture()
	require.NoError(t, err)

	out, err := c.Compress(path)

	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(path, ".png")+"_compressed.jpg", out)
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
}

func TestCompressFallsBackToOriginal(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{})

	missing := filepath.Join(c.opts.Dir, "gone.png")
	out, err := c.Compress(missing)
	assert.Error(t, err)
	assert.Equal(t, missing, out)

	notPNG := filepath.Join(c.opts.Dir, "junk.png")
	require.NoError(t, os.WriteFile(notPNG, []byte("not an image"), 0o600))
	out, err = c.Compress(notPNG)
	assert.Error(t, err)
	assert.Equal(t, notPNG, out)
	assert.NoFileExists(t, filepath.Join(c.opts.Dir, "junk_compressed.jpg"))
}

// failingCreate fails the first n creates with err, then creates normally.
func failingCreate(n int, err error, calls *int) func(string) (*os.File, error) {
	return func(name string) (*os.File, error) {
		*calls++
		if *calls <= n {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return os.Create(name)
	}
}

func TestCompressGivesUpAfterThreeLockedAttempts(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{})
	path, err := c.Capture()
	require.NoError(t, err)

	calls := 0
	c.createFile = failingCreate(10, fs.ErrPermission, &calls)

	out, err := c.Compress(path)

	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, path, out)
	assert.Equal(t, 3, calls)
}

func TestCompressRecoversFromOneLockedAttempt(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{})
	path, err := c.Capture()
	require.NoError(t, err)

	calls := 0
	c.createFile = failingCreate(1, fs.ErrPermission, &calls)

	out, err := c.Compress(path)

	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(path, ".png")+"_compressed.jpg", out)
	assert.FileExists(t, out)
	assert.Equal(t, 2, calls)
}

func TestCompressDoesNotRetryFinalErrors(t *testing.T) {
	c := newTestCapturer(t, twoMonitors(), Options{})

	notPNG := filepath.Join(c.opts.Dir, "junk.png")
	require.NoError(t, os.WriteFile(notPNG, []byte("not an image"), 0o600))
	opens := 0
	c.openFile = func(name string) (*os.File, error) {
		opens++
		return os.Open(name)
	}
	_, err := c.Compress(notPNG)
	assert.Error(t, err)
	assert.Equal(t, 1, opens, "decode errors are tried once")

	path, err := c.Capture()
	require.NoError(t, err)
	calls := 0
	c.openFile = os.Open
	c.createFile = failingCreate(10, syscall.ENOSPC, &calls)
	out, err := c.Compress(path)
	assert.ErrorIs(t, err, syscall.ENOSPC)
	assert.Equal(t, path, out)
	assert.Equal(t, 1, calls, "a full disk is not retried")
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}))
	assert.True(t, transient(&fs.PathError{Op: "open", Path: "x", Err: syscall.EBUSY}))
	assert.False(t, transient(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}))
	assert.False(t, transient(&fs.PathError{Op: "open", Path: "x", Err: syscall.EROFS}))
	assert.False(t, transient(errors.New("decode failed")))
}

// Package capture grabs the screen to files on disk.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"
)

const (
	compressRetries = 3
	compressBackoff = 500 * time.Millisecond
	defaultQuality  = 70
	fallbackWidth   = 1920
	fallbackHeight  = 1080
)

// Display is one monitor's geometry in virtual-screen coordinates.
type Display struct {
	Index  int
	Left   int
	Top    int
	Width  int
	Height int
}

// grabber is the screen backend. The default is kbinani/screenshot.
type grabber interface {
	NumDisplays() int
	Bounds(i int) image.Rectangle
	Capture(r image.Rectangle) (image.Image, error)
}

type screenGrabber struct{}

func (screenGrabber) NumDisplays() int { return screenshot.NumActiveDisplays() }
func (screenGrabber) Bounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }
func (screenGrabber) Capture(r image.Rectangle) (image.Image, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, err
	}
	return img, nil
}

type Options struct {
	Dir         string
	JPEGQuality int
	// MaxWidth downscales compressed shots wider than this. Zero keeps size.
	MaxWidth uint
}

type Capturer struct {
	opts    Options
	grab    grabber
	backoff time.Duration

	// file access used by Compress
	openFile   func(name string) (*os.File, error)
	createFile func(name string) (*os.File, error)
}

func New(opts Options) *Capturer {
	if opts.Dir == "" {
		opts.Dir = "screenshots"
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = defaultQuality
	}
	return &Capturer{
		opts:       opts,
		grab:       screenGrabber{},
		backoff:    compressBackoff,
		openFile:   os.Open,
		createFile: os.Create,
	}
}

var ErrNoDisplay = errors.New("no active display")

// Capture grabs the whole virtual screen, all monitors, into a new PNG.
// The caller removes the file.
func (c *Capturer) Capture() (string, error) {
	n := c.grab.NumDisplays()
	if n <= 0 {
		return "", ErrNoDisplay
	}
	var all image.Rectangle
	for i := 0; i < n; i++ {
		all = all.Union(c.grab.Bounds(i))
	}
	return c.captureTo(all, "screenshot_"+uuid.NewString()+".png")
}

// CaptureDisplay grabs one monitor. Out-of-range indexes use the first one.
func (c *Capturer) CaptureDisplay(i int) (string, error) {
	n := c.grab.NumDisplays()
	if n <= 0 {
		return "", ErrNoDisplay
	}
	if i < 0 || i >= n {
		i = 0
	}
	name := fmt.Sprintf("screenshot_display%d_%s.png", i, uuid.NewString())
	return c.captureTo(c.grab.Bounds(i), name)
}

// Displays lists monitor geometry, assuming one full-HD screen when none
// can be detected.
func (c *Capturer) Displays() []Display {
	n := c.grab.NumDisplays()
	if n <= 0 {
		return []Display{{Index: 0, Width: fallbackWidth, Height: fallbackHeight}}
	}
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		b := c.grab.Bounds(i)
		out = append(out, Display{Index: i, Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()})
	}
	return out
}

// CheckPermission makes a throwaway capture of the first display.
func (c *Capturer) CheckPermission() bool {
	path, err := c.CaptureDisplay(0)
	if err != nil {
		log.Printf("[capture] screenshot permission check failed: %v", err)
		return false
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[capture] could not remove %s: %v", path, err)
	}
	return true
}

func (c *Capturer) captureTo(r image.Rectangle, name string) (string, error) {
	img, err := c.grab.Capture(r)
	if err != nil {
		return "", fmt.Errorf("capture screen: %w", err)
	}
	if err := os.MkdirAll(c.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(c.opts.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create screenshot file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Compress re-encodes a PNG as JPEG next to it. Only file-access errors are
// retried. When every attempt fails the original path is returned with the
// last error.
func (c *Capturer) Compress(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return path, fmt.Errorf("compress: %w", err)
	}
	out := strings.TrimSuffix(path, filepath.Ext(path)) + "_compressed.jpg"

	var lastErr error
	for attempt := 1; attempt <= compressRetries; attempt++ {
		lastErr = c.compressOnce(path, out)
		if lastErr == nil {
			return out, nil
		}
		os.Remove(out)
		if !transient(lastErr) {
			break
		}
		log.Printf("[capture] compress attempt %d/%d failed: %v", attempt, compressRetries, lastErr)
		time.Sleep(c.backoff)
	}
	return path, lastErr
}

func (c *Capturer) compressOnce(src, dst string) error {
	in, err := c.openFile(src)
	if err != nil {
		return err
	}
	img, err := png.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	if c.opts.MaxWidth > 0 && uint(img.Bounds().Dx()) > c.opts.MaxWidth {
		img = resize.Resize(c.opts.MaxWidth, 0, img, resize.Lanczos3)
	}

	f, err := c.createFile(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: c.opts.JPEGQuality}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if st, err := os.Stat(dst); err != nil || st.Size() == 0 {
		return fmt.Errorf("compressed file %s is empty", filepath.Base(dst))
	}
	return nil
}

// transient reports file-access errors a short wait can clear: a file still
// held by another process or a busy device. Missing files, full disks and
// read-only filesystems are final.
func transient(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN)
}

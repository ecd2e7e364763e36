// Package imaging downsamples and recompresses chart screenshots before they
// are sent to the inference service.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MediaType of every normalized image.
const MediaType = "image/jpeg"

// DefaultMaxPixels caps the decoded area (about 50 megapixels).
const DefaultMaxPixels = 50_000_000

// Options controls the re-encoding.
type Options struct {
	Quality  float64       // JPEG quality factor in (0, 1]
	MaxWidth int           // images wider than this are scaled down
	Timeout  time.Duration // upper bound on decode+encode; zero means none

	// MaxPixels rejects images whose header declares a larger width*height,
	// before any pixel buffer is allocated. Zero means no limit.
	MaxPixels int
}

// DefaultOptions returns quality 0.7, max width 1200px, a 10s bound and
// DefaultMaxPixels.
func DefaultOptions() Options {
	return Options{
		Quality:   0.7,
		MaxWidth:  1200,
		Timeout:   10 * time.Second,
		MaxPixels: DefaultMaxPixels,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.Quality <= 0 || o.Quality > 1 {
		return fmt.Errorf("quality must be in (0, 1], got %v", o.Quality)
	}
	if o.MaxWidth <= 0 {
		return fmt.Errorf("max width must be positive, got %d", o.MaxWidth)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if o.MaxPixels < 0 {
		return fmt.Errorf("max pixels must not be negative")
	}
	return nil
}

// Image is a normalized payload ready for transmission.
type Image struct {
	MediaType string
	Data      string // base64 body, no data-url header
	Width     int
	Height    int
}

// Bytes decodes the base64 body.
func (i Image) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(i.Data)
}

// DecodeError reports a payload that could not be turned into an image,
// including decodes that did not finish in time.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode image: " + e.Reason
	}
	return fmt.Sprintf("decode image: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err carries a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

type outcome struct {
	img Image
	err error
}

// Normalize decodes payload (a data URL or bare base64 body), caps its
// width at opts.MaxWidth keeping the aspect ratio, and re-encodes it as JPEG
// at opts.Quality. Every failure to produce an image, including running past
// opts.Timeout or ctx, is returned as a *DecodeError.
func Normalize(ctx context.Context, payload string, opts Options) (Image, error) {
	if err := opts.Validate(); err != nil {
		return Image{}, err
	}
	if err := ctx.Err(); err != nil {
		return Image{}, &DecodeError{Reason: "cancelled before decode", Err: err}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		img, err := normalize(payload, opts)
		done <- outcome{img, err}
	}()

	select {
	case o := <-done:
		return o.img, o.err
	case <-ctx.Done():
		return Image{}, &DecodeError{Reason: "decode did not finish in time", Err: ctx.Err()}
	}
}

func normalize(payload string, opts Options) (Image, error) {
	_, raw, err := ParseDataURL(payload)
	if err != nil {
		return Image{}, &DecodeError{Reason: "invalid payload", Err: err}
	}

	// the header alone tells the size; check it before the decoder allocates
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, &DecodeError{Reason: "unsupported or corrupt image", Err: err}
	}
	if tooLarge(cfg.Width, cfg.Height, opts.MaxPixels) {
		return Image{}, &DecodeError{
			Reason: fmt.Sprintf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, opts.MaxPixels),
		}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, &DecodeError{Reason: "unsupported or corrupt image", Err: err}
	}

	w, h := FitWidth(src.Bounds().Dx(), src.Bounds().Dy(), opts.MaxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return Image{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Image{
		MediaType: MediaType,
		Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:     w,
		Height:    h,
	}, nil
}

// FitWidth scales (w, h) down so that w <= maxWidth, keeping the aspect
// ratio. Sizes already within bounds are returned unchanged.
func FitWidth(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	nh := int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

func tooLarge(w, h, maxPixels int) bool {
	if maxPixels <= 0 {
		return false
	}
	if w <= 0 || h <= 0 {
		return false
	}
	return int64(w)*int64(h) > int64(maxPixels)
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

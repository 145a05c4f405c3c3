package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"net/url"
	"strconv"
	"strings"

	"snapgram/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Crop gravities accepted by previews.
const (
	GravityCenter = "center"
	GravityTop    = "top"
	GravityBottom = "bottom"
	GravityLeft   = "left"
	GravityRight  = "right"
)

const maxPreviewDimension = 4000

// PreviewOptions describes a rendered preview of a stored image.
type PreviewOptions struct {
	Width   int
	Height  int
	Gravity string
	Quality int
	// Output is "jpeg" (default) or "webp".
	Output string
}

// DefaultPreview is the preview every post and avatar image links to.
var DefaultPreview = PreviewOptions{Width: 2000, Height: 2000, Gravity: GravityTop, Quality: 100}

// PreviewURL returns the public URL serving fileID rendered with opts.
func PreviewURL(baseURL, fileID string, opts PreviewOptions) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(opts.Width))
	q.Set("height", strconv.Itoa(opts.Height))
	q.Set("gravity", opts.Gravity)
	q.Set("quality", strconv.Itoa(opts.Quality))
	if opts.Output != "" {
		q.Set("output", opts.Output)
	}
	return strings.TrimRight(baseURL, "/") + "/api/files/" + url.PathEscape(fileID) + "/preview?" + q.Encode()
}

// ParsePreviewOptions reads preview parameters from a query string. Missing
// values fall back to DefaultPreview.
func ParsePreviewOptions(q url.Values) (PreviewOptions, error) {
	opts := DefaultPreview
	intParam := func(name string, dst *int, lo, hi int) error {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < lo || n > hi {
			return models.NewValidationError(fmt.Sprintf("%s must be between %d and %d", name, lo, hi))
		}
		*dst = n
		return nil
	}
	if err := intParam("width", &opts.Width, 0, maxPreviewDimension); err != nil {
		return opts, err
	}
	if err := intParam("height", &opts.Height, 0, maxPreviewDimension); err != nil {
		return opts, err
	}
	if err := intParam("quality", &opts.Quality, 1, 100); err != nil {
		return opts, err
	}
	if g := q.Get("gravity"); g != "" {
		switch g {
		case GravityCenter, GravityTop, GravityBottom, GravityLeft, GravityRight:
			opts.Gravity = g
		default:
			return opts, models.NewValidationError("unsupported gravity " + g)
		}
	}
	switch out := q.Get("output"); out {
	case "", "jpeg", "jpg":
		opts.Output = ""
	case "webp":
		opts.Output = "webp"
	default:
		return opts, models.NewValidationError("unsupported output " + out)
	}
	return opts, nil
}

// RenderPreview decodes an image, crops it to the requested aspect ratio
// anchored at the gravity, shrinks it to fit, and re-encodes it. It never
// upscales. Width or height 0 keeps the source aspect ratio.
func RenderPreview(src io.Reader, opts PreviewOptions) ([]byte, string, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, "", models.NewValidationError("file is not a decodable image")
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if opts.Width > 0 && opts.Height > 0 {
		x, y, cw, ch := cropRect(w, h, float64(opts.Width)/float64(opts.Height), opts.Gravity)
		img = cropToRect(img, b.Min.X+x, b.Min.Y+y, cw, ch)
	}

	maxW, maxH := opts.Width, opts.Height
	if maxW <= 0 {
		maxW = maxPreviewDimension
	}
	if maxH <= 0 {
		maxH = maxPreviewDimension
	}
	img = resizeToFit(img, maxW, maxH)

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 100
	}
	if opts.Output == "webp" {
		out, err := encodeWebP(img, quality)
		return out, "image/webp", err
	}
	out, err := encodeJPEG(img, quality)
	return out, "image/jpeg", err
}

// cropRect returns the largest w:h = ratio rectangle inside a srcW x srcH image
// positioned by gravity.
func cropRect(srcW, srcH int, ratio float64, gravity string) (x, y, w, h int) {
	srcRatio := float64(srcW) / float64(srcH)
	if srcRatio > ratio {
		h = srcH
		w = int(float64(srcH) * ratio)
	} else {
		w = srcW
		h = int(float64(srcW) / ratio)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	x, y = (srcW-w)/2, (srcH-h)/2
	switch gravity {
	case GravityTop:
		y = 0
	case GravityBottom:
		y = srcH - h
	case GravityLeft:
		x = 0
	case GravityRight:
		x = srcW - w
	}
	return x, y, w, h
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

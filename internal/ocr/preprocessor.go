package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// Profile tunes preprocessing for a kind of document.
type Profile struct {
	Name         string
	MinDimension int     // shorter side is upscaled to at least this
	SharpenSigma float64 // Gaussian unsharp sigma
	Threshold    uint8   // binarization cut-off, 0-255
}

var (
	// PrintedProfile suits typed or printed invoices
	PrintedProfile = Profile{Name: "printed", MinDimension: 1500, SharpenSigma: 1.0, Threshold: 128}
	// HandwrittenProfile keeps thin pen strokes: more pixels, softer sharpening, lower cut-off
	HandwrittenProfile = Profile{Name: "handwritten", MinDimension: 2000, SharpenSigma: 0.6, Threshold: 100}
)

// Processed is the output of Preprocess.
type Processed struct {
	Data     []byte
	Width    int
	Height   int
	Degraded bool // true when the original bytes were passed through
}

// Preprocessor handles image preprocessing for optimal OCR results
type Preprocessor struct {
	log logrus.FieldLogger
}

// NewPreprocessor creates a new image preprocessor
func NewPreprocessor(log logrus.FieldLogger) *Preprocessor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Preprocessor{log: log}
}

// ProfileFor picks the profile for a document.
func ProfileFor(handwritten bool) Profile {
	if handwritten {
		return HandwrittenProfile
	}
	return PrintedProfile
}

// Preprocess upscales, converts to grayscale, stretches contrast, sharpens
// and binarizes the image. On any failure the original bytes are returned
// with Degraded set; it never fails the caller.
func (p *Preprocessor) Preprocess(data []byte, handwritten bool) Processed {
	profile := ProfileFor(handwritten)
	out, err := p.apply(data, profile)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"profile": profile.Name,
			"bytes":   len(data),
		}).WithError(err).Warn("Preprocessing failed, using original image")
		return Processed{Data: data, Degraded: true}
	}
	p.log.WithFields(logrus.Fields{
		"profile": profile.Name,
		"in":      len(data),
		"out":     len(out.Data),
		"width":   out.Width,
		"height":  out.Height,
	}).Debug("Image enhanced")
	return out
}

func (p *Preprocessor) apply(data []byte, profile Profile) (Processed, error) {
	if len(data) == 0 {
		return Processed{}, fmt.Errorf("empty image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Processed{}, fmt.Errorf("failed to decode image: %w", err)
	}

	img = upscale(img, profile.MinDimension)
	gray := imaging.Grayscale(img)
	gray = stretchContrast(gray)
	gray = imaging.Sharpen(gray, profile.SharpenSigma)
	gray = binarize(gray, profile.Threshold)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return Processed{}, fmt.Errorf("failed to encode image: %w", err)
	}
	b := gray.Bounds()
	return Processed{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// upscale resizes so the shorter side reaches min; larger images are kept.
func upscale(img image.Image, min int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	short := w
	if h < short {
		short = h
	}
	if short == 0 || short >= min {
		return img
	}
	scale := float64(min) / float64(short)
	return imaging.Resize(img, int(float64(w)*scale+0.5), int(float64(h)*scale+0.5), imaging.Lanczos)
}

// stretchContrast maps the darkest pixel to 0 and the brightest to 255.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return img
	}
	span := float64(hi - lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8((float64(c.R-lo) * 255 / span) + 0.5)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if c.R < threshold {
			return color.NRGBA{A: c.A}
		}
		return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
	})
}

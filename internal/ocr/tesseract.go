package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs recognition in-process through gosseract. A fresh client
// is created per call since gosseract clients are not safe for concurrent
// use.
type Tesseract struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

func NewTesseract(languages []string) *Tesseract {
	return &Tesseract{clientFactory: gosseract.NewClient, languages: languages}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize returns as soon as ctx is done. The engine keeps running in
// the background until tesseract itself returns, then frees its client.
func (t *Tesseract) Recognize(ctx context.Context, img Image, progress ProgressFunc) (Recognition, error) {
	if len(img.Data) == 0 {
		return Recognition{}, ErrEmptyImage
	}

	type result struct {
		rec Recognition
		err error
	}
	ch := make(chan result, 1)

	go func() {
		c := t.clientFactory()
		defer c.Close()
		rec, err := t.recognizeWithClient(c, img, progress)
		ch <- result{rec, err}
	}()

	select {
	case <-ctx.Done():
		return Recognition{}, ctx.Err()
	case r := <-ch:
		return r.rec, r.err
	}
}

func (t *Tesseract) recognizeWithClient(c *gosseract.Client, img Image, progress ProgressFunc) (Recognition, error) {
	if err := c.SetImageFromBytes(img.Data); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}

	langs := img.Languages
	if len(langs) == 0 {
		langs = t.languages
	}
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return Recognition{}, fmt.Errorf("set languages: %w", err)
		}
	}
	report(progress, 20)

	text, err := c.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	report(progress, 80)

	return Recognition{
		Text:       strings.TrimSpace(text),
		Confidence: meanWordConfidence(c),
		Engine:     t.Name(),
		Language:   firstLanguage(langs),
	}, nil
}

func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

func firstLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}

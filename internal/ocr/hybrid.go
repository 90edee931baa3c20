package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// DefaultMinConfidence is the local result quality below which Hybrid asks
// the fallback engine.
const DefaultMinConfidence = 0.6

// Hybrid tries Primary first and falls back when it fails, returns no
// text, or scores below MinConfidence.
type Hybrid struct {
	Primary       Recognizer
	Fallback      Recognizer
	MinConfidence float64
}

func (h *Hybrid) Name() string { return h.Primary.Name() + "+" + h.Fallback.Name() }

func (h *Hybrid) Recognize(ctx context.Context, img Image, progress ProgressFunc) (Recognition, error) {
	half := func(p int) { report(progress, p/2) }

	rec, err := h.Primary.Recognize(ctx, img, half)
	if err == nil && strings.TrimSpace(rec.Text) != "" && rec.Confidence >= h.MinConfidence {
		return rec, nil
	}
	if ctx.Err() != nil {
		return Recognition{}, ctx.Err()
	}

	log.Printf("OCR_FALLBACK primary=%s confidence=%.2f err=%v", h.Primary.Name(), rec.Confidence, err)

	fallback, ferr := h.Fallback.Recognize(ctx, img, func(p int) { report(progress, 50+p/2) })
	if ferr != nil {
		// keep whatever the local pass produced
		if err == nil && strings.TrimSpace(rec.Text) != "" {
			return rec, nil
		}
		return Recognition{}, ferr
	}
	return fallback, nil
}

// ForMethod builds the recognizer for an upload's method.
func ForMethod(m Method, local, remote Recognizer) (Recognizer, error) {
	var rec Recognizer
	switch m {
	case MethodClient:
		rec = local
	case MethodServer:
		rec = remote
	case MethodBoth:
		switch {
		case local == nil:
			rec = remote
		case remote == nil:
			rec = local
		default:
			rec = &Hybrid{Primary: local, Fallback: remote, MinConfidence: DefaultMinConfidence}
		}
	default:
		return nil, ErrUnknownMethod
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, m)
	}
	return rec, nil
}

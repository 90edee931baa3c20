package ocr

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrRecognitionFailed = errors.New("text recognition failed")
	ErrEmptyImage        = errors.New("image is empty")
	ErrUnknownMethod     = errors.New("unknown ocr method")
	ErrImageDecode       = errors.New("image could not be decoded")
	ErrImageTooLarge     = errors.New("image dimensions too large")
	ErrEngineUnavailable = errors.New("ocr engine not configured")
)

// Method selects where recognition runs.
type Method string

const (
	MethodClient Method = "CLIENT" // local tesseract
	MethodServer Method = "SERVER" // gemini
	MethodBoth   Method = "BOTH"   // tesseract, gemini as fallback
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodClient, MethodServer, MethodBoth:
		return m, nil
	case "":
		return MethodClient, nil
	default:
		return "", ErrUnknownMethod
	}
}

// Image is a prepared upload handed to a recognizer.
type Image struct {
	Data      []byte
	MIMEType  string
	Languages []string
}

// Recognition is the raw text of one pass. Confidence is the mean word
// confidence in [0,1] as reported by the engine.
type Recognition struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Engine     string  `json:"engine"`
	Language   string  `json:"language,omitempty"`
}

// ProgressFunc receives a percentage in [0,100]. Calls are best effort.
type ProgressFunc func(percent int)

type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img Image, progress ProgressFunc) (Recognition, error)
}

func report(progress ProgressFunc, percent int) {
	if progress != nil {
		progress(percent)
	}
}

package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// remoteConfidence is reported for gemini transcriptions, which carry no
// per-word scores.
const remoteConfidence = 0.9

const transcribePrompt = `You transcribe photographed restaurant menus.
Return the menu text exactly as printed, one dish or heading per line, top to bottom.
Keep prices, currency symbols and decimal separators as they appear.
Do not translate, summarize or add anything. Plain text only, no markdown.`

type Gemini struct {
	APIKey string
	Model  string
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Recognize(ctx context.Context, img Image, progress ProgressFunc) (Recognition, error) {
	if g.APIKey == "" {
		return Recognition{}, errors.New("missing GEMINI_API_KEY")
	}
	if g.Model == "" {
		return Recognition{}, errors.New("missing GEMINI_MODEL")
	}
	if len(img.Data) == 0 {
		return Recognition{}, ErrEmptyImage
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return Recognition{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "text/plain",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(transcribePrompt)},
	}

	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	parts := []genai.Part{
		genai.Text("Transcribe this menu."),
		&genai.Blob{MIMEType: mime, Data: img.Data},
	}
	report(progress, 30)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return Recognition{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		report(progress, 90)

		txt := strings.TrimSpace(firstText(resp))
		if txt == "" {
			return Recognition{}, fmt.Errorf("gemini: empty response")
		}
		return Recognition{
			Text:       stripCodeFences(txt),
			Confidence: remoteConfidence,
			Engine:     g.Name(),
			Language:   firstLanguage(img.Languages),
		}, nil
	}
	return Recognition{}, lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func ptrFloat32(v float32) *float32 { return &v }

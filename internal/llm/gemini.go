package llm

import (
	"context"
	"time"

	genai "google.golang.org/genai"

	"digin/internal/digest"
	"digin/internal/scan"
)

const (
	defaultTimeout = 120 * time.Second
	geminiAttempts = 3
	retryBaseDelay = 300 * time.Millisecond
)

// GeminiProvider analyzes leaf directories through the official genai client.
type GeminiProvider struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeminiProvider{cli: cli, model: model, timeout: timeout}, nil
}

func (g *GeminiProvider) Name() string { return "gemini:" + g.model }
func (g *GeminiProvider) Close() error { return nil }

// AnalyzeLeaf sends the directory listing as a JSON-mode request and parses
// the response into a digest. The timeout bounds each attempt; retries use
// exponential backoff.
func (g *GeminiProvider) AnalyzeLeaf(ctx context.Context, dir scan.DirInfo) (digest.Digest, error) {
	prompt := BuildPrompt(dir)

	var lastErr error
	for attempt := 0; attempt < geminiAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return digest.Digest{}, ctx.Err()
			case <-time.After(retryBaseDelay * time.Duration(1<<(attempt-1))):
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.cli.Models.GenerateContent(callCtx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrInvalidJSON
			continue
		}
		d, err := ParseDigest([]byte(resp.Candidates[0].Content.Parts[0].Text), dir.Path)
		if err != nil {
			lastErr = err
			continue
		}
		return d, nil
	}
	return digest.Digest{}, lastErr
}

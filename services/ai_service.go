package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"health-assistant-backend/models"
)

const (
	geminiEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	defaultGeminiModel = "gemini-1.5-flash"
)

// GeminiGenerator calls the Gemini generateContent REST endpoint.
type GeminiGenerator struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

var _ Generator = (*GeminiGenerator)(nil)

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiGenerator{
		apiKey: apiKey,
		apiURL: fmt.Sprintf(geminiEndpoint, model),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL points the generator at another endpoint, mostly for tests.
func (g *GeminiGenerator) SetBaseURL(url string) {
	g.apiURL = url
}

func (g *GeminiGenerator) Available() bool {
	return g.apiKey != ""
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any    `json:"generationConfig"`
	SafetySettings    []geminiSafetyCfg `json:"safetySettings"`
}

type geminiSafetyCfg struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, history []models.Turn, domain DomainContext) (string, error) {
	if !g.Available() {
		return "", goerr.New("gemini api key is not configured")
	}

	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction(domain)}}},
		GenerationConfig: map[string]any{
			"temperature":     0.7,
			"maxOutputTokens": 500,
		},
		SafetySettings: []geminiSafetyCfg{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
		},
	}
	for _, t := range history {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		payload.Contents = append(payload.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: t.Text}}})
	}
	payload.Contents = append(payload.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})

	body, err := json.Marshal(payload)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal gemini request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build gemini request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "gemini request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read gemini response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("gemini api error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(raw)),
		)
	}

	var result geminiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", goerr.Wrap(err, "failed to decode gemini response")
	}
	for _, c := range result.Candidates {
		for _, p := range c.Content.Parts {
			if text := strings.TrimSpace(p.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", goerr.New("no response generated")
}

// systemInstruction renders the domain context both providers receive.
func systemInstruction(domain DomainContext) string {
	var b strings.Builder
	b.WriteString("You are a helpful medical assistant for a clinic. You provide general health information only. ")
	b.WriteString("You never diagnose and you never decide how urgent something is.")
	if domain.Topic != "" {
		fmt.Fprintf(&b, "\nThe user is currently discussing: %s.", domain.Topic)
	}
	if len(domain.Profile.Medications) > 0 {
		fmt.Fprintf(&b, "\nKnown medications: %s.", strings.Join(domain.Profile.Medications, ", "))
	}
	if len(domain.Profile.Conditions) > 0 {
		fmt.Fprintf(&b, "\nKnown conditions: %s.", strings.Join(domain.Profile.Conditions, ", "))
	}
	if domain.Triage != nil {
		fmt.Fprintf(&b, "\nThe clinic has already advised the user to %s; do not contradict it.", domain.Triage.Action)
	}
	return b.String()
}

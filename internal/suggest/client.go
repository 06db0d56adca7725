// Package suggest calls the external language-model service that proposes
// bot moves. The contract is soft: the coordinator always recovers locally
// when this package errors, times out, or proposes an illegal move.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"
	maxTokens      = 100
	analysisTokens = 150
)

// ErrDisabled is returned when no service credential is configured.
var ErrDisabled = errors.New("suggestion service disabled: no API key")

// Request carries the position context for one suggestion call.
type Request struct {
	FEN        string
	LegalSAN   []string
	HistorySAN []string
	Skill      string
	MoveNumber int
	// Remaining is the bot clock in seconds; forwarded for pacing only.
	Remaining int
}

// Client talks to the messages endpoint of the suggestion service.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if strings.TrimSpace(u) != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   defaultModel,
		http:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		timeout: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// SuggestMove asks the service for a move and matches the reply against the
// legal move list. Any failure surfaces as an error; it is never fatal for
// the owning room.
func (c *Client) SuggestMove(ctx context.Context, req Request) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if len(req.LegalSAN) == 0 {
		return "", fmt.Errorf("no legal moves to suggest from")
	}

	text, err := c.complete(ctx, BuildPrompt(req), maxTokens)
	if err != nil {
		return "", err
	}

	move := ExtractMove(text, req.LegalSAN)
	if move == "" {
		return "", fmt.Errorf("suggestion %q matches no legal move", strings.TrimSpace(text))
	}
	return move, nil
}

// AnalyzePosition asks the service for a short commentary on a final
// position. Best effort; callers log the result and drop failures.
func (c *Client) AnalyzePosition(ctx context.Context, fen string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	text, err := c.complete(ctx, BuildAnalysisPrompt(fen), analysisTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// complete performs one messages call and returns the first content block.
func (c *Client) complete(ctx context.Context, prompt string, tokens int) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: tokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal suggestion request: %w", err)
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(httpReq)
		fasthttp.ReleaseResponse(httpResp)
	}()

	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.SetRequestURI(c.baseURL + "/v1/messages")
	httpReq.Header.SetContentType("application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.SetBody(body)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}

	if err := c.http.DoTimeout(httpReq, httpResp, timeout); err != nil {
		return "", fmt.Errorf("suggestion request: %w", err)
	}
	if code := httpResp.StatusCode(); code != fasthttp.StatusOK {
		return "", fmt.Errorf("suggestion service status %d", code)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(httpResp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("decode suggestion response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("empty suggestion response")
	}
	return parsed.Content[0].Text, nil
}

var skillInstructions = map[string]string{
	"easy":   "Play at a beginner level. Make simple moves, occasionally miss tactics. Don't look too far ahead.",
	"medium": "Play at an intermediate level. Look for basic tactics, control the center, develop pieces safely.",
	"hard":   "Play at an advanced level. Look for complex tactics, strategic plans, and calculate several moves ahead.",
}

// BuildPrompt renders the position context into the instruction the model
// answers with a single move.
func BuildPrompt(req Request) string {
	phase := "endgame"
	switch {
	case req.MoveNumber <= 10:
		phase = "opening"
	case req.MoveNumber <= 25:
		phase = "middlegame"
	}

	recent := "Game start"
	if n := len(req.HistorySAN); n > 0 {
		start := n - 6
		if start < 0 {
			start = 0
		}
		recent = strings.Join(req.HistorySAN[start:], ", ")
	}

	instructions, ok := skillInstructions[req.Skill]
	if !ok {
		instructions = skillInstructions["medium"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are playing chess as Black. Current position (FEN): %s\n\n", req.FEN)
	fmt.Fprintf(&b, "Game phase: %s (move %d)\n", phase, req.MoveNumber)
	fmt.Fprintf(&b, "Recent moves: %s\n\n", recent)
	fmt.Fprintf(&b, "Difficulty: %s\nInstructions: %s\n\n", req.Skill, instructions)
	fmt.Fprintf(&b, "Available moves: %s\n\n", strings.Join(req.LegalSAN, ", "))
	b.WriteString(`Choose the best move and respond with ONLY the move in algebraic notation (e.g., "Nf6", "e5", "O-O").`)
	switch req.Skill {
	case "easy":
		b.WriteString("\nRemember to play simply and make some human-like mistakes.")
	case "hard":
		b.WriteString("\nLook for the most forcing and strongest moves.")
	}
	return b.String()
}

// BuildAnalysisPrompt renders the final-position commentary request.
func BuildAnalysisPrompt(fen string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this chess position (FEN): %s\n\n", fen)
	b.WriteString("Provide a brief analysis covering:\n")
	b.WriteString("1. Material balance\n")
	b.WriteString("2. Key tactical threats\n")
	b.WriteString("3. Strategic considerations\n\n")
	b.WriteString("Keep it concise (2-3 sentences).")
	return b.String()
}

// ExtractMove matches the raw model reply against the legal move list.
// Returns "" when nothing matches.
func ExtractMove(response string, legal []string) string {
	cleaned := strings.NewReplacer(".", "", ",", "", "!", "", "?", "").Replace(response)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	for _, mv := range legal {
		if cleaned == mv || strings.Contains(cleaned, mv) {
			return mv
		}
	}
	for _, word := range strings.Fields(cleaned) {
		for _, mv := range legal {
			if word == mv {
				return mv
			}
		}
	}
	return ""
}

package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"flowpaste/internal/domain"
	"flowpaste/internal/ports"
)

// Config controls the chat-completions endpoint settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Temperature float64
}

// Provider implements ports.TextGenerator against an OpenAI-compatible
// streaming chat-completions API.
type Provider struct {
	cfg Config
	hc  *http.Client
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Provider{cfg: cfg, hc: &http.Client{}}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *Provider) StartStream(ctx context.Context, req ports.GenerationRequest) (ports.GenerationStream, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, domain.NewError(domain.ErrKindAuth, "OPENAI_API_KEY is not configured", nil)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Stream:      true,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.APIBaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("invalid generation endpoint %q: %w", endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewError(domain.ErrKindNetwork, "failed to reach generation service", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, resp.Body)
	}

	stream := &generationStream{
		body:    resp.Body,
		deltas:  make(chan domain.TextDelta, 64),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}

	go stream.readLoop()
	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	return stream, nil
}

// classifyStatus maps non-2xx responses onto the error taxonomy, carrying the
// machine-readable upstream message when one is present.
func classifyStatus(status int, body io.Reader) error {
	payload, _ := io.ReadAll(io.LimitReader(body, 4096))
	message := fmt.Sprintf("generation service returned status %d", status)
	var parsed apiError
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewError(domain.ErrKindAuth, message, nil)
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return domain.NewError(domain.ErrKindValidation, message, nil)
	case status == http.StatusRequestTimeout:
		return domain.NewError(domain.ErrKindTimeout, message, nil)
	default:
		return domain.NewError(domain.ErrKindNetwork, message, nil)
	}
}

type generationStream struct {
	body io.ReadCloser

	deltas  chan domain.TextDelta
	done    chan struct{}
	closing chan struct{}

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (s *generationStream) Deltas() <-chan domain.TextDelta { return s.deltas }

func (s *generationStream) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *generationStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.body.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *generationStream) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *generationStream) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *generationStream) readLoop() {
	defer func() {
		close(s.deltas)
		close(s.done)
		_ = s.body.Close()
	}()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.emit(domain.TextDelta{Done: true})
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				s.emit(domain.TextDelta{Text: choice.Delta.Content})
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				s.emit(domain.TextDelta{Done: true})
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(domain.NewError(domain.ErrKindNetwork, "generation stream interrupted", err))
		return
	}
	// Connection close without a terminal marker still ends the stream.
	s.emit(domain.TextDelta{Done: true})
}

func (s *generationStream) emit(delta domain.TextDelta) {
	select {
	case s.deltas <- delta:
	case <-s.closing:
	}
}

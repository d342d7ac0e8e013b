package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"flowpaste/internal/domain"
	"flowpaste/internal/ports"
)

// Config controls the Deepgram dictation websocket.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SampleRate  int
	Channels    int
	Encoding    string
	SmartFormat bool
}

// Provider implements ports.TranscriptionProvider for Deepgram live dictation.
// Audio chunks arrive from the browser; the provider only moves bytes and
// classifies transcript events.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "opus"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) StartDictation(ctx context.Context) (ports.DictationStream, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, domain.NewError(domain.ErrKindAuth, "DEEPGRAM_API_KEY is not configured", nil)
	}

	wsURL, err := buildListenURL(p.cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, classifyHandshake(resp.StatusCode, err)
		}
		return nil, domain.NewError(domain.ErrKindNetwork, "failed to connect to transcription service", err)
	}

	stream := &dictationStream{
		conn:        conn,
		transcripts: make(chan domain.TranscriptEvent, 64),
		audio:       make(chan []byte, 32),
		done:        make(chan struct{}),
	}

	stream.wg.Add(2)
	go stream.readLoop()
	go stream.writeLoop()
	go func() {
		stream.wg.Wait()
		close(stream.transcripts)
		close(stream.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	return stream, nil
}

func classifyHandshake(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewError(domain.ErrKindAuth, "transcription service rejected credentials", err)
	case status/100 == 4:
		return domain.NewError(domain.ErrKindValidation, "transcription service rejected the request", err)
	default:
		return domain.NewError(domain.ErrKindNetwork, "failed to connect to transcription service", err)
	}
}

type dictationStream struct {
	conn *websocket.Conn

	transcripts chan domain.TranscriptEvent
	audio       chan []byte
	done        chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *dictationStream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("dictation audio stream is already closed")
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("dictation session closed")
	}
}

func (s *dictationStream) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *dictationStream) Transcripts() <-chan domain.TranscriptEvent {
	return s.transcripts
}

func (s *dictationStream) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *dictationStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *dictationStream) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *dictationStream) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *dictationStream) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.setErr(domain.NewError(domain.ErrKindNetwork, "failed to send audio", err))
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(domain.NewError(domain.ErrKindNetwork, "failed to close dictation stream", err))
	}
}

func (s *dictationStream) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(domain.NewError(domain.ErrKindNetwork, "failed to read transcription event", err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "transcription service returned an unknown error"
			}
			s.setErr(domain.NewError(domain.ErrKindNetwork, message, nil))
			return
		}

		text := extractTranscript(response)
		if text == "" {
			continue
		}
		s.emit(domain.TranscriptEvent{
			Text:  text,
			Final: response.IsFinal || response.SpeechFinal,
		})
	}
}

func (s *dictationStream) emit(event domain.TranscriptEvent) {
	select {
	case s.transcripts <- event:
	case <-s.done:
	default:
	}
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid transcription API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", cfg.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", cfg.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", cfg.Channels))
	query.Set("interim_results", "true")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

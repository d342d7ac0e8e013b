package bootstrap

import (
	"flowpaste/internal/config"
	"flowpaste/internal/ports"
	"flowpaste/internal/providers/deepgram"
	"flowpaste/internal/providers/openai"
	"flowpaste/internal/request"
	"flowpaste/internal/richtext"
	"flowpaste/internal/sanitize"
	"flowpaste/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.ActionController
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	sanitizer, err := sanitize.NewFromFile(cfg.Sanitizer.RulesPath)
	if err != nil {
		return Services{}, err
	}

	controller := usecase.NewActionController(
		openai.NewProvider(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			APIBaseURL:  cfg.OpenAI.APIBaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
		}),
		deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SampleRate:  cfg.Deepgram.SampleRate,
			Channels:    cfg.Deepgram.Channels,
			Encoding:    cfg.Deepgram.Encoding,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}),
		richtext.NewConverter(),
		sanitizer,
		clipboard,
		eventSink,
		usecase.Config{
			Runner: request.Runner{
				AttemptTimeout: cfg.Action.AttemptTimeout,
				Retries:        cfg.Action.Retries,
				BackoffBase:    cfg.Action.BackoffBase,
			},
			LongInputThreshold: cfg.Action.LongInputThreshold,
			FixSystemPrompt:    cfg.Action.FixSystemPrompt,
			PolishSystemPrompt: cfg.Action.PolishSystemPrompt,
			DictationGrace:     cfg.Action.DictationGrace,
		},
	)

	return Services{Controller: controller, Config: cfg}, nil
}

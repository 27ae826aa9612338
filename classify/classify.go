// Package classify labels page screenshots through an image-classification
// inference server speaking the Hugging Face inference format: raw image bytes
// are POSTed and a JSON array of {label, score} comes back.
//
// Usage:
//
//	c := classify.New(classify.Config{
//	    Endpoint: "https://api-inference.huggingface.co/models/google/vit-base-patch16-224",
//	    Token:    os.Getenv("HF_TOKEN"),
//	})
//	results, err := c.Classify(ctx, screenshotPNG)
package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/designaudit/design"
)

// Classifier turns an image into ranked labels.
type Classifier interface {
	// Classify returns at most design.TopK results, highest score first.
	Classify(ctx context.Context, image []byte) ([]design.ClassificationResult, error)

	// Name identifies the backend for logs and reports.
	Name() string
}

// Config configures the inference client.
type Config struct {
	// Endpoint is the full model URL. If empty, New returns a Noop classifier.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Token is sent as a bearer token when set.
	Token string `json:"-" yaml:"token"`

	// InputSize is the square edge the screenshot is resized to. Default: 224.
	InputSize int `json:"input_size" yaml:"input_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.InputSize <= 0 {
		c.InputSize = 224
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Classifier from config.
func New(cfg Config) Classifier {
	cfg.defaults()
	if cfg.Endpoint == "" {
		cfg.Logger.Info("classify: no endpoint configured, screenshot signals disabled")
		return Noop{}
	}
	return newHTTPClient(cfg)
}

// Noop returns no results. The audit then relies on element rules alone.
type Noop struct{}

func (Noop) Classify(context.Context, []byte) ([]design.ClassificationResult, error) {
	return []design.ClassificationResult{}, nil
}

func (Noop) Name() string { return "noop" }

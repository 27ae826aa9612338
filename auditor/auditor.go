// Package auditor runs audits end to end: capture a page, classify its
// screenshot, evaluate the design engine and record the report.
package auditor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/designaudit/capture"
	"github.com/hazyhaar/designaudit/design"
	"github.com/hazyhaar/designaudit/store"
)

// Capturer acquires the rendered elements and screenshot of a URL.
type Capturer interface {
	Capture(ctx context.Context, url string) (*capture.Page, error)
}

// Classifier labels a screenshot.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]design.ClassificationResult, error)
}

// Recorder persists audits.
type Recorder interface {
	Save(ctx context.Context, url string, report design.Report, screenshot []byte) (*store.Record, error)
	Get(ctx context.Context, id string) (*store.Record, error)
	List(ctx context.Context, limit int) ([]store.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Config wires an Auditor. Capturer is required. Classifier and Recorder
// may be nil.
type Config struct {
	Capturer   Capturer
	Classifier Classifier
	Recorder   Recorder
	Metrics    *Metrics
	Timeout    time.Duration // per Run, default 90s
	Logger     *slog.Logger
}

// Result is the outcome of one Run.
type Result struct {
	ID              string                        `json:"id,omitempty"`
	URL             string                        `json:"url"`
	Report          design.Report                 `json:"report"`
	Classifications []design.ClassificationResult `json:"classifications"`
	Elements        int                           `json:"elements"`
	Screenshot      []byte                        `json:"-"`
	Duration        time.Duration                 `json:"-"`
}

// Auditor orchestrates audit runs.
type Auditor struct {
	capturer   Capturer
	classifier Classifier
	recorder   Recorder
	metrics    *Metrics
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates an Auditor.
func New(cfg Config) *Auditor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Auditor{
		capturer:   cfg.Capturer,
		classifier: cfg.Classifier,
		recorder:   cfg.Recorder,
		metrics:    cfg.Metrics,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// ValidateURL returns the trimmed URL when it is absolute http or https.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidURL
	}
	return raw, nil
}

// Run audits the page at rawURL. Capture and classification failures are
// returned wrapped in the design package sentinels; see Kind.
func (a *Auditor) Run(ctx context.Context, rawURL string) (*Result, error) {
	started := time.Now()

	target, err := ValidateURL(rawURL)
	if err != nil {
		a.metrics.observe("invalid_url", started)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	log := a.logger.With("url", target)

	page, err := a.capturer.Capture(ctx, target)
	if err != nil {
		a.metrics.observe("capture_error", started)
		log.Warn("auditor: capture failed", "error", err)
		return nil, fmt.Errorf("auditor: %w", err)
	}

	results := []design.ClassificationResult{}
	if a.classifier != nil && len(page.Screenshot) > 0 {
		results, err = a.classifier.Classify(ctx, page.Screenshot)
		if err != nil {
			a.metrics.observe("classification_error", started)
			log.Warn("auditor: classification failed", "error", err)
			return nil, fmt.Errorf("auditor: %w", err)
		}
	}

	report := design.Audit(page.Elements, results)
	res := &Result{
		URL:             target,
		Report:          report,
		Classifications: results,
		Elements:        len(page.Elements),
		Screenshot:      page.Screenshot,
	}

	if a.recorder != nil {
		rec, err := a.recorder.Save(ctx, target, report, page.Screenshot)
		if err != nil {
			a.metrics.observe("storage_error", started)
			return nil, fmt.Errorf("auditor: record: %w", err)
		}
		res.ID = rec.ID
	}

	res.Duration = time.Since(started)
	a.metrics.observe("ok", started)
	a.metrics.report(report)
	log.Info("auditor: audit complete",
		"id", res.ID,
		"elements", res.Elements,
		"classifications", len(results),
		"issue_groups", design.GroupCount(report.Issues),
		"clusters", len(report.Clusters),
		"duration", res.Duration)
	return res, nil
}

// Evaluate runs the engine on supplied inputs. Nothing is captured or stored.
func (a *Auditor) Evaluate(elements []design.ElementRecord, results []design.ClassificationResult) design.Report {
	report := design.Audit(elements, results)
	a.metrics.report(report)
	return report
}

// Get returns a recorded audit.
func (a *Auditor) Get(ctx context.Context, id string) (*store.Record, error) {
	if a.recorder == nil {
		return nil, ErrNoHistory
	}
	return a.recorder.Get(ctx, id)
}

// List returns recent audits, newest first.
func (a *Auditor) List(ctx context.Context, limit int) ([]store.Entry, error) {
	if a.recorder == nil {
		return nil, ErrNoHistory
	}
	return a.recorder.List(ctx, limit)
}

// Delete removes a recorded audit.
func (a *Auditor) Delete(ctx context.Context, id string) error {
	if a.recorder == nil {
		return ErrNoHistory
	}
	return a.recorder.Delete(ctx, id)
}

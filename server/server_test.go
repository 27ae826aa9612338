package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/designaudit/auditor"
	"github.com/hazyhaar/designaudit/capture"
	"github.com/hazyhaar/designaudit/design"
	"github.com/hazyhaar/designaudit/store"
)

type stubCapturer struct {
	page *capture.Page
	err  error
}

func (s stubCapturer) Capture(context.Context, string) (*capture.Page, error) {
	return s.page, s.err
}

type stubClassifier struct {
	err error
}

func (s stubClassifier) Classify(context.Context, []byte) ([]design.ClassificationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []design.ClassificationResult{{Label: "web site", Score: 0.9}}, nil
}

func fixturePage() *capture.Page {
	return &capture.Page{
		URL: "https://example.com",
		Elements: []design.ElementRecord{{
			Tag:   "img",
			Src:   "a.png",
			Rect:  design.BoundingBox{X: 10, Y: 20, Width: 100, Height: 50},
			Flags: design.IssueFlags{MissingAlt: true},
		}},
		Screenshot: []byte("\x89PNG-fake"),
	}
}

type testEnv struct {
	srv   *httptest.Server
	store *store.Store
}

func newTestEnv(t *testing.T, capt auditor.Capturer, cls auditor.Classifier, withStore bool, rl *RateLimiter) *testEnv {
	t.Helper()
	env := &testEnv{}

	var rec auditor.Recorder
	if withStore {
		st, err := store.Open(":memory:")
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		env.store = st
		rec = st
	}

	reg := prometheus.NewRegistry()
	a := auditor.New(auditor.Config{
		Capturer:   capt,
		Classifier: cls,
		Recorder:   rec,
		Metrics:    auditor.NewMetrics(reg),
	})
	s := New(Options{Auditor: a, Gatherer: reg, RateLimiter: rl})
	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, nil, false, nil)
	resp, body := env.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("health = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Error("missing trace id")
	}
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, stubClassifier{}, true, nil)

	resp, body := env.do(t, http.MethodPost, "/analyze", `{"url":"https://example.com"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var out struct {
		ID         string                                  `json:"id"`
		Issues     map[design.Category][]design.IssueGroup `json:"issues"`
		Scorecard  design.Scorecard                        `json:"scorecard"`
		Clusters   []design.Cluster                        `json:"clusters"`
		Summary    string                                  `json:"summary"`
		Screenshot string                                  `json:"screenshot"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID == "" {
		t.Error("missing id")
	}
	if len(out.Issues) != len(design.Categories) {
		t.Errorf("issues has %d categories, want %d", len(out.Issues), len(design.Categories))
	}
	if out.Scorecard[design.CategoryAccessibility] != 7 {
		t.Errorf("scorecard = %v", out.Scorecard)
	}
	// "web site" at 0.9 matches the web signal as a minor ux issue.
	if out.Scorecard[design.CategoryUX] != 9 {
		t.Errorf("ux score = %d, want 9", out.Scorecard[design.CategoryUX])
	}
	shot, err := base64.StdEncoding.DecodeString(out.Screenshot)
	if err != nil || string(shot) != "\x89PNG-fake" {
		t.Errorf("screenshot = %q (%v)", out.Screenshot, err)
	}
	if !strings.HasPrefix(out.Summary, "Found ") {
		t.Errorf("summary = %q", out.Summary)
	}

	// The audit is now in history.
	resp, body = env.do(t, http.MethodGet, "/audits/"+out.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d: %s", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodGet, "/audits/"+out.ID+"/screenshot", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || string(body) != "\x89PNG-fake" {
		t.Fatalf("screenshot = %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, nil, false, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing url", `{}`, "URL is required"},
		{"relative url", `{"url":"example.com"}`, "http"},
		{"bad scheme", `{"url":"file:///etc/passwd"}`, "http"},
		{"malformed json", `{"url":`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/analyze", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", resp.StatusCode, body)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body = %s, want it to mention %q", body, tt.want)
			}
		})
	}
}

func TestAnalyze_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		capt auditor.Capturer
		cls  auditor.Classifier
		kind string
	}{
		{
			"capture",
			stubCapturer{err: fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED", design.ErrCaptureFailed)},
			nil,
			"capture",
		},
		{
			"classification",
			stubCapturer{page: fixturePage()},
			stubClassifier{err: fmt.Errorf("%w: HTTP 503", design.ErrClassificationFailed)},
			"classification",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.capt, tt.cls, false, nil)
			resp, body := env.do(t, http.MethodPost, "/analyze", `{"url":"https://example.com"}`)
			if resp.StatusCode != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502: %s", resp.StatusCode, body)
			}
			var out map[string]string
			if err := json.Unmarshal(body, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out["error"] != "Failed to analyze website" || out["kind"] != tt.kind || out["details"] == "" {
				t.Errorf("body = %v", out)
			}
		})
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, nil, false, nil)
	big := `{"url":"https://example.com/` + strings.Repeat("a", MaxAnalyzeBody) + `"}`
	resp, _ := env.do(t, http.MethodPost, "/analyze", big)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, nil, false, NewRateLimiter(0.001, 2))
	for i := 0; i < 2; i++ {
		if resp, body := env.do(t, http.MethodPost, "/analyze", `{"url":"https://example.com"}`); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d = %d: %s", i, resp.StatusCode, body)
		}
	}
	resp, _ := env.do(t, http.MethodPost, "/analyze", `{"url":"https://example.com"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	// Offline audits are not limited.
	if resp, _ := env.do(t, http.MethodPost, "/audit", `{"elements":[]}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("/audit = %d", resp.StatusCode)
	}
}

func TestAudit(t *testing.T) {
	env := newTestEnv(t, stubCapturer{}, nil, false, nil)

	body := `{
		"elements": [
			{"tagName":"img","src":"a.png","rect":{"x":0,"y":0,"width":10,"height":10},"issues":{"missingAlt":true}},
			{"tagName":"img","src":"b.png","rect":{"x":10,"y":0,"width":10,"height":10},"issues":{"missingAlt":true}}
		],
		"classifierResults": [{"label":"table","score":0.2}]
	}`
	resp, data := env.do(t, http.MethodPost, "/audit", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var rep design.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	acc := rep.Issues[design.CategoryAccessibility]
	if len(acc) != 1 || acc[0].Count != 2 {
		t.Fatalf("accessibility = %+v", acc)
	}
	if rep.Scorecard[design.CategoryTechnical] != 7 {
		t.Errorf("technical = %d, want 7", rep.Scorecard[design.CategoryTechnical])
	}
}

func TestAudit_InvalidScore(t *testing.T) {
	env := newTestEnv(t, stubCapturer{}, nil, false, nil)
	resp, body := env.do(t, http.MethodPost, "/audit", `{"elements":[],"classifierResults":[{"label":"x","score":2}]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, nil, true, nil)
	ctx := context.Background()

	rep := design.Audit(fixturePage().Elements, nil)
	rec, err := env.store.Save(ctx, "https://example.com", rep, nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	resp, body := env.do(t, http.MethodGet, "/audits", "")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(rec.ID)) {
		t.Fatalf("list = %d: %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodGet, "/audits/"+rec.ID+"/screenshot", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("screenshot-less audit = %d, want 404", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodDelete, "/audits/"+rec.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/audits/"+rec.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/audits/"+rec.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestHistory_Disabled(t *testing.T) {
	env := newTestEnv(t, stubCapturer{}, nil, false, nil)
	resp, _ := env.do(t, http.MethodGet, "/audits", "")
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, stubCapturer{page: fixturePage()}, nil, false, nil)
	env.do(t, http.MethodPost, "/analyze", `{"url":"https://example.com"}`)

	resp, body := env.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`designaudit_audits_total{result="ok"} 1`,
		"designaudit_audit_duration_seconds_count 1",
		`designaudit_issue_groups_total{category="accessibility",severity="Critical"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

package auditor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/designaudit/design"
	"github.com/hazyhaar/designaudit/store"
)

// RegisterMCP registers the designaudit tools on an MCP server.
func RegisterMCP(srv *mcp.Server, a *Auditor) {
	registerAnalyzeTool(srv, a)
	registerEvaluateTool(srv, a)
	registerGetTool(srv, a)
	registerListTool(srv, a)
}

type endpoint func(ctx context.Context, req any) (any, error)

// registerTool adapts a decode/endpoint pair to an MCP tool handler. Both
// decode and endpoint errors become tool errors, never protocol errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool, ep endpoint, decode func(*mcp.CallToolRequest) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := ep(ctx, decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func decodeInto[T any](req *mcp.CallToolRequest) (any, error) {
	var r T
	if len(req.Params.Arguments) == 0 {
		return &r, nil
	}
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- analyze ---

type analyzeReq struct {
	URL string `json:"url"`
}

func registerAnalyzeTool(srv *mcp.Server, a *Auditor) {
	tool := &mcp.Tool{
		Name:        "designaudit_analyze",
		Description: "Capture a web page and audit its design: grouped issues per category, 0-10 scores and spatial clusters.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute http(s) URL to audit"},
		}, []string{"url"}),
	}

	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeReq)
		res, err := a.Run(ctx, r.URL)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"id":        res.ID,
			"url":       res.URL,
			"elements":  res.Elements,
			"issues":    res.Report.Issues,
			"scorecard": res.Report.Scorecard,
			"clusters":  res.Report.Clusters,
			"summary":   res.Report.Summary,
		}, nil
	}

	registerTool(srv, tool, ep, decodeInto[analyzeReq])
}

// --- evaluate ---

type evaluateReq struct {
	Elements          []design.ElementRecord        `json:"elements"`
	ClassifierResults []design.ClassificationResult `json:"classifierResults"`
}

func registerEvaluateTool(srv *mcp.Server, a *Auditor) {
	tool := &mcp.Tool{
		Name:        "designaudit_evaluate",
		Description: "Audit pre-captured element records and classifier results without fetching anything.",
		InputSchema: inputSchema(map[string]any{
			"elements": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "object"},
				"description": "Element records (tagName, rect, styles, issues...)",
			},
			"classifierResults": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "object"},
				"description": "Classifier labels with scores in [0,1]",
			},
		}, []string{"elements"}),
	}

	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*evaluateReq)
		return a.Evaluate(r.Elements, r.ClassifierResults), nil
	}

	registerTool(srv, tool, ep, decodeInto[evaluateReq])
}

// --- get ---

type getReq struct {
	ID string `json:"id"`
}

func registerGetTool(srv *mcp.Server, a *Auditor) {
	tool := &mcp.Tool{
		Name:        "designaudit_get",
		Description: "Fetch a recorded audit report by ID.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Audit ID"},
		}, []string{"id"}),
	}

	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*getReq)
		if r.ID == "" {
			return nil, fmt.Errorf("id is required")
		}
		return a.Get(ctx, r.ID)
	}

	registerTool(srv, tool, ep, decodeInto[getReq])
}

// --- list ---

type listReq struct {
	Limit int `json:"limit"`
}

func registerListTool(srv *mcp.Server, a *Auditor) {
	tool := &mcp.Tool{
		Name:        "designaudit_list",
		Description: "List recent audits, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum entries (default 50)"},
		}, nil),
	}

	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*listReq)
		entries, err := a.List(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []store.Entry{}
		}
		return map[string]any{"audits": entries, "count": len(entries)}, nil
	}

	registerTool(srv, tool, ep, decodeInto[listReq])
}

package pagesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the folio tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerStatusTool(srv)
	e.registerPagesTool(srv)
	e.registerNodeStatesTool(srv)
	e.registerGotoPageTool(srv)
	e.registerAddPageTool(srv)
	e.registerRemoveNodeTool(srv)
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

// addTool wires a typed endpoint into the SDK. A non-nil endpoint error
// becomes a tool error on the result, not a protocol error.
func addTool(srv *mcp.Server, tool *mcp.Tool, endpoint func(ctx context.Context, args json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := endpoint(ctx, req.Params.Arguments)
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

// --- folio_status ---

func (e *Engine) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "folio_status",
		Description: "Report the open document's summary: page count, current page, tracked node count.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return e.Status(), nil
	})
}

// --- folio_pages ---

func (e *Engine) registerPagesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "folio_pages",
		Description: "List the open document's pages in order, with ids and display names.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		pages := e.Pages()
		if pages == nil {
			return nil, ErrNoDocument
		}
		return pages, nil
	})
}

// --- folio_node_states ---

type nodeStatesRequest struct {
	PageIndex *int `json:"page_index,omitempty"`
}

func (e *Engine) registerNodeStatesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "folio_node_states",
		Description: "List tracked node states: page assignment and page-relative position per node, sorted by id.",
		InputSchema: inputSchema(map[string]any{
			"page_index": map[string]any{"type": "integer", "description": "Only nodes on this page"},
		}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var rr nodeStatesRequest
		if len(args) > 0 {
			if err := json.Unmarshal(args, &rr); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}
		entries := e.NodeStates()
		if rr.PageIndex == nil {
			return entries, nil
		}
		filtered := make([]NodeStateEntry, 0, len(entries))
		for _, en := range entries {
			if en.State.PageIndex == *rr.PageIndex {
				filtered = append(filtered, en)
			}
		}
		return filtered, nil
	})
}

// --- folio_goto_page ---

type gotoPageRequest struct {
	Index int `json:"index"`
}

func (e *Engine) registerGotoPageTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "folio_goto_page",
		Description: "Navigate the open document to a page by index. Out-of-range targets are rejected without changing state.",
		InputSchema: inputSchema(map[string]any{
			"index": map[string]any{"type": "integer", "description": "Zero-based page index"},
		}, []string{"index"}),
	}
	addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var rr gotoPageRequest
		if err := json.Unmarshal(args, &rr); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		if err := e.GoToPage(rr.Index); err != nil {
			return nil, err
		}
		return e.Status(), nil
	})
}

// --- folio_add_page ---

func (e *Engine) registerAddPageTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "folio_add_page",
		Description: "Append a page to the open document and return its index.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		index, err := e.AddPage()
		if err != nil {
			return nil, err
		}
		return map[string]any{"index": index}, nil
	})
}

// --- folio_remove_node ---

type removeNodeRequest struct {
	ID string `json:"id"`
}

func (e *Engine) registerRemoveNodeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "folio_remove_node",
		Description: "Delete a node's tracked state. This is the explicit removal path; hidden or vanished nodes are otherwise retained.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Node identity"},
		}, []string{"id"}),
	}
	addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var rr removeNodeRequest
		if err := json.Unmarshal(args, &rr); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		if rr.ID == "" {
			return nil, errors.New("id is required")
		}
		if err := e.RemoveNode(rr.ID); err != nil {
			return nil, err
		}
		return e.Status(), nil
	})
}

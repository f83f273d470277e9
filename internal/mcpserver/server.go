// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the document view as tools for LLM integration via stdio.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/docview/internal/docview"
	"github.com/starford/docview/internal/render"
)

const viewURI = "docview://view"

// Server wraps the MCP server with document view tools.
type Server struct {
	mcp  *server.MCPServer
	view *docview.View
}

// New creates a new MCP server with all document view tools registered.
func New(view *docview.View, version string) *Server {
	s := &Server{view: view}

	s.mcp = server.NewMCPServer(
		"docview",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a document by its numeric id. Returns the title, summary, "+
			"content and query history. Opening the already open id does not refetch it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id, a positive integer")),
	), s.openDocument)

	s.mcp.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Return the AI-generated summary of the open document."),
	), s.getSummary)

	s.mcp.AddTool(mcp.NewTool("get_content",
		mcp.WithDescription("Return the full text of the open document."),
	), s.getContent)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Ask a question about the open document. The answer is added to the top of the query history."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question text")),
	), s.askQuestion)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List the query history of the open document, newest first. "+
			"Only the expanded entry shows its answer."),
	), s.getHistory)

	s.mcp.AddTool(mcp.NewTool("toggle_answer",
		mcp.WithDescription("Expand the answer of a history entry, or collapse it if it is already expanded."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based history index as shown by get_history")),
	), s.toggleAnswer)

	s.mcp.AddTool(mcp.NewTool("get_usage",
		mcp.WithDescription("Returns a short guide to the document view tools."),
	), s.getUsage)

	s.mcp.AddResource(
		mcp.NewResource(viewURI, "Document View",
			mcp.WithResourceDescription("Current document and query session as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readViewResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(usageURI, "Usage Guide",
			mcp.WithResourceDescription("How to drive the document view tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readUsageResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) openDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.view.Open(ctx, id); err != nil {
		return mcp.NewToolResultError(s.view.Loader().State().Err), nil
	}
	return s.renderView(render.TabAll)
}

func (s *Server) getSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireLoaded(); res != nil {
		return res, nil
	}
	return mcp.NewToolResultText(s.view.Loader().State().Document.Summary), nil
}

func (s *Server) getContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireLoaded(); res != nil {
		return res, nil
	}
	return mcp.NewToolResultText(s.view.Loader().State().Document.Content), nil
}

func (s *Server) askQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := s.requireLoaded(); res != nil {
		return res, nil
	}
	q, err := s.view.Session().Submit(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(s.view.Session().Snapshot().Err), nil
	}
	if q == nil {
		if s.view.Session().Snapshot().Submitting() {
			return mcp.NewToolResultError("another question is still being processed"), nil
		}
		return mcp.NewToolResultError("question is empty"), nil
	}
	var buf bytes.Buffer
	render.WriteAnswer(&buf, *q)
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireLoaded(); res != nil {
		return res, nil
	}
	var buf bytes.Buffer
	render.WriteHistory(&buf, s.view.Session().Snapshot())
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) toggleAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := s.requireLoaded(); res != nil {
		return res, nil
	}
	snap := s.view.Session().Snapshot()
	if index < 0 || index >= len(snap.Queries) {
		return mcp.NewToolResultError(fmt.Sprintf("no history entry %d (have %d)", index, len(snap.Queries))), nil
	}
	s.view.Session().ToggleExpanded(index)

	var buf bytes.Buffer
	render.WriteHistory(&buf, s.view.Session().Snapshot())
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) getUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(UsageGuide), nil
}

func (s *Server) readViewResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var buf bytes.Buffer
	if err := render.WriteView(&buf, s.view.Loader().State(), s.view.Session().Snapshot(), render.TabAll, render.FormatJSON); err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      viewURI,
			MIMEType: "application/json",
			Text:     buf.String(),
		},
	}, nil
}

func (s *Server) readUsageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      usageURI,
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}

func (s *Server) renderView(tab render.Tab) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := render.WriteView(&buf, s.view.Loader().State(), s.view.Session().Snapshot(), tab, render.FormatText); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// requireLoaded returns an error result when no document is open.
func (s *Server) requireLoaded() *mcp.CallToolResult {
	st := s.view.Loader().State()
	if st.Loaded {
		return nil
	}
	if st.Err != "" {
		return mcp.NewToolResultError(st.Err)
	}
	return mcp.NewToolResultError("no document is open; call open_document first")
}

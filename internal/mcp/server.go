package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/changelog/internal/changelog"
	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/git"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/render"
)

// Server exposes changelog generation as MCP tools.
type Server struct {
	settings *config.Settings
	git      git.Client
	trackers issues.Trackers
	logger   *slog.Logger
	version  string
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(s *config.Settings, gc git.Client, trackers issues.Trackers, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	return &Server{
		settings: s,
		git:      gc,
		trackers: trackers,
		logger:   logger,
		version:  version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("changelog", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.generateTool())
	srv.AddTool(s.tagsTool())
	srv.AddTool(s.issuesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

func refArgs(request mcp.CallToolRequest) changelog.Options {
	return changelog.Options{
		FromRef: request.GetString("from_ref", ""),
		ToRef:   request.GetString("to_ref", ""),
	}
}

// changelog_generate
func (s *Server) generateTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("changelog_generate",
		mcp.WithDescription("Generate the changelog of the configured repository. Returns Markdown, JSON or YAML."),
		mcp.WithString("format", mcp.Description("Output format: markdown (default), json or yaml")),
		mcp.WithString("from_ref", mcp.Description("Exclude this ref and its history")),
		mcp.WithString("to_ref", mcp.Description("Newest ref to include (default HEAD)")),
	)
	return tool, s.handleGenerate
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", s.settings.OutputFormat)
	r, err := render.New(format, s.settings.Template)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := changelog.Generate(ctx, s.settings, s.git, s.trackers, s.logger, refArgs(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate changelog: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, res.Changelog); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render changelog: %v", err)), nil
	}

	result := mcp.NewToolResultText(buf.String())
	if len(res.Diagnostics) > 0 {
		lines := make([]string, len(res.Diagnostics))
		for i, d := range res.Diagnostics {
			lines[i] = d.String()
		}
		result.Content = append(result.Content, mcp.NewTextContent("warnings:\n"+strings.Join(lines, "\n")))
	}
	return result, nil
}

// changelog_tags
func (s *Server) tagsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("changelog_tags",
		mcp.WithDescription("List the releases of the configured repository. Returns a JSON array with name, commit, author and issue counts, and the newest commit time."),
		mcp.WithString("from_ref", mcp.Description("Exclude this ref and its history")),
		mcp.WithString("to_ref", mcp.Description("Newest ref to include (default HEAD)")),
	)
	return tool, s.handleTags
}

func (s *Server) handleTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := changelog.Generate(ctx, s.settings, s.git, s.trackers, s.logger, refArgs(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read tags: %v", err)), nil
	}

	out := changelog.TagSummaries(res.Changelog)
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal tags: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// changelog_issues
func (s *Server) issuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("changelog_issues",
		mcp.WithDescription("List the issues referenced in the commit history. Returns a JSON array with bucket, id, title, link, labels and commit count."),
		mcp.WithString("bucket", mcp.Description("Only issues of this bucket, e.g. Bugs")),
		mcp.WithString("from_ref", mcp.Description("Exclude this ref and its history")),
		mcp.WithString("to_ref", mcp.Description("Newest ref to include (default HEAD)")),
	)
	return tool, s.handleIssues
}

func (s *Server) handleIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket := request.GetString("bucket", "")
	res, err := changelog.Generate(ctx, s.settings, s.git, s.trackers, s.logger, refArgs(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read issues: %v", err)), nil
	}

	out := changelog.IssueSummaries(res.Changelog, bucket)
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

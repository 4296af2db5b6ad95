package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dlashko/plume/internal/pipeline"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/storage"
	"github.com/dlashko/plume/internal/style"
)

// MCPDeps holds dependencies for the MCP server. MCP clients run locally
// over stdio, so every tool acts as the default owner.
type MCPDeps struct {
	Store    *storage.Store
	Profiles *profile.Manager
	Rewriter *pipeline.Rewriter
	Analyzer *style.Analyzer
}

// NewMCPServer creates an MCP server with all plume tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"plume",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("plume rewrites AI-generated text into an authentic personal voice: strip watermarks, learn a writing style, humanize."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("clean_text",
			mcp.WithDescription("Strip AI watermark phrases, disclaimers, and filler from text without changing its voice."),
			mcp.WithString("text", mcp.Description("The text to clean"), mcp.Required()),
		),
		mcpCleanText(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_style",
			mcp.WithDescription("Analyze a writing sample and store the resulting style profile for later rewrites."),
			mcp.WithString("text", mcp.Description("A writing sample of at least 100 characters"), mcp.Required()),
		),
		mcpAnalyzeStyle(deps),
	)

	s.AddTool(
		mcp.NewTool("humanize_text",
			mcp.WithDescription("Clean text and rewrite it to match the stored style profile."),
			mcp.WithString("text", mcp.Description("The text to rewrite"), mcp.Required()),
			mcp.WithString("persona_id", mcp.Description("Optional persona to apply instead of the active one")),
			mcp.WithString("format", mcp.Description("Output channel: standard, linkedin, email, or notes")),
		),
		mcpHumanizeText(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"style://profile",
			"Style Profile",
			mcp.WithResourceDescription("The stored style profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpCleanText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		res, err := deps.Rewriter.Clean(text)
		if err != nil {
			return mcpError(fmt.Sprintf("cleaning failed: %v", err)), nil
		}

		saveActivity(AppDeps{Store: deps.Store}, storage.Activity{
			Owner:    DefaultOwner,
			Action:   "clean",
			Engine:   pipeline.EngineHeuristic,
			CharsIn:  len(text),
			CharsOut: len(res.Cleaned),
		})

		return mcpText(res.Cleaned), nil
	}
}

func mcpAnalyzeStyle(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		prof, err := deps.Analyzer.Analyze(text)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		if err := deps.Profiles.SetStyleProfile(DefaultOwner, prof); err != nil {
			return mcpError(fmt.Sprintf("failed to save profile: %v", err)), nil
		}

		b, err := json.Marshal(prof)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}

		saveActivity(AppDeps{Store: deps.Store}, storage.Activity{
			Owner:   DefaultOwner,
			Action:  "analyze",
			Engine:  pipeline.EngineHeuristic,
			CharsIn: len(text),
		})

		return mcpText(string(b)), nil
	}
}

func mcpHumanizeText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		res, err := deps.Rewriter.Rewrite(ctx, pipeline.Request{
			Owner:     DefaultOwner,
			Text:      text,
			Humanize:  true,
			PersonaID: req.GetString("persona_id", ""),
			Format:    req.GetString("format", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("rewrite failed: %v", err)), nil
		}

		recordActivity(AppDeps{Store: deps.Store}, DefaultOwner, "rewrite", res)

		return mcpText(res.Formatted), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		prof, found, err := deps.Profiles.StyleProfile(DefaultOwner)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		if !found {
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     "{}",
				},
			}, nil
		}

		b, err := json.Marshal(prof)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// Package mcp exposes the banking knowledge base over the Model Context
// Protocol so external assistants can query it as a tool.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"bankcrew/pkg/tools"
)

// Server wraps the mcp-go server around the knowledge base tools.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server exposing the knowledge query tool.
func NewServer(name, version string, knowledgeTool *tools.KnowledgeTool) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version),
	}

	tool := mcp.NewTool(knowledgeTool.Name(),
		mcp.WithDescription(knowledgeTool.Description()),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language question about banking products or services"),
		),
	)
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		query, _ := args["query"].(string)
		if query == "" {
			return mcp.NewToolResultError("query argument is required"), nil
		}
		result, err := knowledgeTool.Call(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("knowledge query failed: %v", err)), nil
		}
		return mcp.NewToolResultText(result), nil
	})

	return s
}

// ServeStdio starts the server on stdio and blocks until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

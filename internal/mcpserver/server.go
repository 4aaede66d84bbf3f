// Package mcpserver exposes the PlayProof API as MCP tools so an LLM can
// check sessions and read the ledger.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all PlayProof tools registered.
func NewMCPServer(cfg Config, version string) *server.MCPServer {
	s := server.NewMCPServer("playproof", version)
	h := NewHandlers(NewPlayProofClient(cfg))

	s.AddTool(ToolAnalyzeSession, h.HandleAnalyzeSession)
	s.AddTool(ToolLogSession, h.HandleLogSession)
	s.AddTool(ToolListBlocks, h.HandleListBlocks)
	s.AddTool(ToolGetBlock, h.HandleGetBlock)

	return s
}

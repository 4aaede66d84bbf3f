package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/playproofx/playproof/internal/ledger"
	"github.com/playproofx/playproof/internal/risk"
	"github.com/playproofx/playproof/internal/session"
)

// defaultListLimit keeps list_blocks output readable for an LLM.
const defaultListLimit = 20

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *PlayProofClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *PlayProofClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeSession classifies a session without logging it.
func (h *Handlers) HandleAnalyzeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.Analyze(ctx, sessionFromArgs(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze session: %v", err)), nil
	}

	var resp struct {
		Verdict risk.Verdict `json:"verdict"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse verdict: %v", err)), nil
	}

	return mcp.NewToolResultText(formatVerdict(resp.Verdict)), nil
}

// HandleLogSession classifies a session and appends it to the ledger.
func (h *Handlers) HandleLogSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := sessionFromArgs(req)
	if id := strings.TrimSpace(req.GetString("session_id", "")); id != "" {
		body[ledger.KeySessionID] = id
	}

	raw, err := h.client.LogSession(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to log session: %v", err)), nil
	}

	var resp struct {
		Verdict risk.Verdict `json:"verdict"`
		Block   ledger.Block `json:"block"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse block: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(formatVerdict(resp.Verdict))
	sb.WriteString("\n")
	sb.WriteString(formatBlock(resp.Block))
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleListBlocks lists ledger blocks.
func (h *Handlers) HandleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	order := req.GetString("order", "")
	limit := req.GetInt("limit", defaultListLimit)

	raw, err := h.client.ListBlocks(ctx, order, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list blocks: %v", err)), nil
	}

	text, err := formatBlockList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse blocks: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetBlock fetches one block with its payload.
func (h *Handlers) HandleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetInt("block_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("block_id must be a positive integer"), nil
	}

	raw, err := h.client.GetBlock(ctx, uint64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get block: %v", err)), nil
	}

	var resp struct {
		Block json.RawMessage `json:"block"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Block == nil {
		return mcp.NewToolResultError("Failed to parse block"), nil
	}
	var block ledger.Block
	if err := json.Unmarshal(resp.Block, &block); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse block: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(formatBlock(block))
	fmt.Fprintf(&sb, "\nPayload:\n%s", formatJSON(mustMarshal(block.Payload)))
	return mcp.NewToolResultText(sb.String()), nil
}

// sessionArgs maps tool argument names to session record fields.
var sessionArgs = []struct{ arg, field string }{
	{"games_played", "gamesPlayed"},
	{"wins", "wins"},
	{"losses", "losses"},
	{"total_loss_amount", "totalLossAmount"},
	{"start_balance", "startBalance"},
}

// sessionFromArgs builds a session record body from the numeric tool
// arguments that were actually supplied.
func sessionFromArgs(req mcp.CallToolRequest) map[string]any {
	args := req.GetArguments()
	body := make(map[string]any)
	for _, a := range sessionArgs {
		if _, ok := args[a.arg]; ok {
			body[a.field] = req.GetFloat(a.arg, 0)
		}
	}
	if history := req.GetString("bet_history", ""); history != "" {
		body["betHistory"] = session.ParseBetHistory(history)
	}
	return body
}

func formatVerdict(v risk.Verdict) string {
	streak := "no"
	if v.LossStreak {
		streak = "yes"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Verdict: %s\n", v.Verdict)
	fmt.Fprintf(&sb, "  Severity:    %s\n", v.Severity)
	fmt.Fprintf(&sb, "  Win rate:    %.2f%%\n", v.WinRate)
	fmt.Fprintf(&sb, "  Loss streak: %s\n", streak)
	return sb.String()
}

func formatBlock(b ledger.Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Block #%d\n", b.ID)
	if id := b.Payload.SessionID(); id != "" {
		fmt.Fprintf(&sb, "  Session: %s\n", id)
	}
	fmt.Fprintf(&sb, "  Verdict: %s\n", b.Verdict)
	fmt.Fprintf(&sb, "  Hash:    %s\n", b.ContentHash)
	fmt.Fprintf(&sb, "  Logged:  %s\n", b.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	return sb.String()
}

func formatBlockList(raw json.RawMessage) (string, error) {
	var resp struct {
		Blocks []ledger.Block `json:"blocks"`
		Total  int            `json:"total"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unexpected blocks response format")
	}

	if len(resp.Blocks) == 0 {
		return "The ledger is empty.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Showing %d of %d block(s):\n\n", len(resp.Blocks), resp.Total)
	for _, b := range resp.Blocks {
		sid := b.Payload.SessionID()
		if sid == "" {
			sid = "(no session id)"
		}
		// blocks logged without a severity field get one from the verdict text
		severity, _ := b.Payload["severity"].(string)
		if severity == "" {
			severity = string(session.SeverityForText(b.Verdict))
		}
		fmt.Fprintf(&sb, "#%d %s [%s] %s\n", b.ID, sid, severity, b.Verdict)
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

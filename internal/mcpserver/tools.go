package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the PlayProof MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

func sessionFields(extra ...mcp.ToolOption) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithNumber("games_played",
			mcp.Description("Number of games played in the session")),
		mcp.WithNumber("wins",
			mcp.Description("Number of games won")),
		mcp.WithNumber("losses",
			mcp.Description("Number of games lost")),
		mcp.WithNumber("total_loss_amount",
			mcp.Description("Total amount lost over the session")),
		mcp.WithNumber("start_balance",
			mcp.Description("Balance at the start of the session")),
		mcp.WithString("bet_history",
			mcp.Description("Chronological results, either shorthand like 'w,l,l,l' or a JSON array of {\"result\": \"win\"|\"loss\"} objects")),
	}
	return append(opts, extra...)
}

var ToolAnalyzeSession = mcp.NewTool("analyze_session",
	append([]mcp.ToolOption{
		mcp.WithDescription(
			"Classify a gambling session for fairness and risk without recording it. " +
				"Returns the verdict, a severity (low/medium/high), the win rate percentage, " +
				"and whether the session ended on a loss streak of three or more."),
	}, sessionFields()...)...,
)

var ToolLogSession = mcp.NewTool("log_session",
	append([]mcp.ToolOption{
		mcp.WithDescription(
			"Classify a gambling session and append it to the append-only session ledger. " +
				"Returns the verdict plus the new block's id and content hash. " +
				"A session id is generated when none is given."),
	}, sessionFields(
		mcp.WithString("session_id",
			mcp.Description("Optional identifier for the session (letters, digits, '_', '-', '.', ':')")),
	)...)...,
)

var ToolListBlocks = mcp.NewTool("list_blocks",
	mcp.WithDescription(
		"List logged sessions from the ledger with their verdicts and content hashes."),
	mcp.WithString("order",
		mcp.Description("'newest' (most recent first) or 'oldest' (append order, default)"),
		mcp.Enum("newest", "oldest")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of blocks to return (default 20)")),
)

var ToolGetBlock = mcp.NewTool("get_block",
	mcp.WithDescription(
		"Fetch a single ledger block by id, including the full logged session payload."),
	mcp.WithNumber("block_id",
		mcp.Required(),
		mcp.Description("The block id returned by log_session or list_blocks")),
)

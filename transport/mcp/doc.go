// Package mcp exposes the game to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON answer is rendered as plain text for the agent.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, move, bulk_move, reset_game, move_history, hint
//   - list_levels, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//	server.ServeStdio(client.GetMCPServer())
package mcp

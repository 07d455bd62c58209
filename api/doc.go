// Package api provides the HTTP REST API for box-pushing game sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"level_id": "..."}; empty uses the default level)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session and disconnect its watchers
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/move - {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["up", "left"], "reset": false}
//   - POST /api/sessions/{id}/reset - Restore the level's initial board
//   - GET /api/sessions/{id}/history - Paginated history (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/hint - Shortest solution from the current position
//
// Levels:
//   - GET /api/levels - List levels
//   - GET /api/levels/{name} - Get a level definition
//   - POST /api/levels - Save a level ({"id": "...", "name": "...", "map": "..."})
//   - POST /api/levels/reload - Drop cached levels and reread the directory
//
// Other:
//   - GET /ws?session={id} - WebSocket stream of snapshots for a session
//   - GET /health - Liveness check
//
// Errors are returned as {"error": "...", "code": N}. Unknown sessions and
// levels map to 404, bad input to 400 and unsolvable hints to 422.
package api

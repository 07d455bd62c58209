// Package websocket pushes game snapshots to browser clients.
//
// Architecture:
//
// A central Hub owns every connection. Its Run loop is the only goroutine
// that touches the client maps; callers talk to it through channels. Each
// connection gets a read pump (keeps pongs flowing) and a write pump.
//
// Message Protocol:
//
// Clients connect to /ws?session=<id> and only receive messages. Each
// message is a JSON object:
//
//	{"session_id": "1a2b3c4d", "event": "state_update", "state": {...snapshot...}}
//
// State updates whose snapshot hash matches the previous update for the same
// session are dropped, so a blocked move produces no traffic. A newly
// connected client immediately receives the last state sent for its session.
// Deleting a session sends "session_closed" and disconnects its clients.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	hub.BroadcastSnapshot(sessionID, snapshot)
package websocket

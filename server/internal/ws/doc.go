// Package ws implements the WebSocket hub for testr-dashboard.
//
// Hub pushes the dashboard to connected clients. Each client carries its own
// device-model filter, so two browsers can look at different slices of the
// same loaded runs.
//
// New(view, origins) creates a Hub.
// Hub.Run(ctx) waits for the view to leave the loading phase, pushes the new
// dashboard to everyone, then blocks until ctx is cancelled and closes all
// active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket and sends the
// current dashboard immediately on connect.
//
// Client to server:
//
//	{"query": "pixel"}
//
// Server to client, on connect, on every query and on the view transition:
//
//	{
//	  "event": "dashboard",
//	  "data":  { /* same schema as GET /api/v1/dashboard */ }
//	}
//
// The WebSocket endpoint is mounted at /ws/stream by the server.
package ws

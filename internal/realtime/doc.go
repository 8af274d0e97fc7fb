// Package realtime keeps the registry of open WebSocket connections and pushes
// events to them.
//
// A Hub maps a user ID to that user's open connections. The HTTP handler
// upgrades an already authenticated request and joins the connection under
// the authenticated identity, so a client can never subscribe to another
// user's channel. Emit never blocks on a slow socket: every connection owns a
// bounded send buffer and a message that does not fit is dropped.
package realtime

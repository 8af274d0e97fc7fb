// Package events provides types and interfaces for an event-driven architecture.
//
// Services emit events after their durable writes without knowing which
// handlers consume them. The notification layer registers a handler that
// turns task changes into notification dispatches.
//
// The primary components are:
//   - Event: a typed envelope with a JSON payload
//   - TaskChange: the payload describing a task mutation
//   - EventHandler and EventEmitter: the consumer and producer sides
package events

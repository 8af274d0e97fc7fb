// Package domain contains the core business entities of the task coordination
// service: users and their roles, tasks and their lifecycle, teams and their
// membership, and notifications. It also defines the error taxonomy every other
// layer maps onto. The package is independent of storage and transport.
package domain

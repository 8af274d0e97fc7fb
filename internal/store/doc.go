// Package store defines the persistence interfaces for users, tasks, teams and
// notifications, the error values every implementation returns, and the
// transaction helper services use to group writes. Implementations live under
// internal/platform.
package store

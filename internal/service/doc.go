// Package service implements the application's use cases on top of the store
// interfaces: task lifecycle, team membership, notification dispatch and user
// administration.
//
// Services take the authenticated actor explicitly, consult internal/access
// for every task and team decision, and return errors that wrap exactly one
// of the domain categories (ErrValidation, ErrNotFound, ErrForbidden,
// ErrConflict) so the API layer can choose a status code with errors.Is.
package service

// Package ciutil detects CI environments and resolves the PostgreSQL URL used
// by integration tests.
package ciutil

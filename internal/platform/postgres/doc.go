// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package, the embedded goose
// migrations that create the schema, and a transaction runner that retries
// serialization failures.
//
// Connections go through database/sql with the pgx stdlib driver. Every store
// accepts a store.DBTX so the same code runs against a pool or inside a
// transaction obtained from WithTx.
package postgres

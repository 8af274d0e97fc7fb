//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests using it are built only with the integration tag and are skipped when
// DATABASE_URL is unset:
//
//	func TestUserStore_Integration(t *testing.T) {
//		db := testdb.GetTestDBWithT(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			users := postgres.NewPostgresUserStore(tx, nil)
//			// ...
//		})
//	}
//
// Every test body runs in its own transaction that is rolled back when the
// body returns, so tests can run in parallel against one schema.
package testdb

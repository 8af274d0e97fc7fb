// Package testutils provides test doubles and builders shared by package tests.
//
// MemoryDB is an in-memory implementation of every store interface. Its
// RunInTx snapshots all tables and restores them when the unit of work fails,
// so transactional behavior can be asserted without PostgreSQL:
//
//	db := testutils.NewMemoryDB()
//	manager := testutils.SeedUser(t, db, domain.RoleManager)
//	svc, _ := service.NewTeamService(db, db.Teams(), db.Users(), logger)
//
// Failures can be injected per operation with FailOn, for example
// db.FailOn("users.SetTeam", errors.New("boom")).
//
// TestSlogHandler captures log records for assertions.
package testutils

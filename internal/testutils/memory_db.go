package testutils

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// MemoryDB holds the tables behind the in-memory stores.
type MemoryDB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users         map[uuid.UUID]domain.User
	teams         map[uuid.UUID]domain.Team
	tasks         map[uuid.UUID]domain.Task
	notifications map[uuid.UUID]domain.Notification
	failures      map[string]error

	commits   int
	rollbacks int
}

// NewMemoryDB creates an empty database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[uuid.UUID]domain.User),
		teams:         make(map[uuid.UUID]domain.Team),
		tasks:         make(map[uuid.UUID]domain.Task),
		notifications: make(map[uuid.UUID]domain.Notification),
		failures:      make(map[string]error),
	}
}

// Users returns the user store.
func (db *MemoryDB) Users() store.UserStore { return &memoryUserStore{db: db} }

// Tasks returns the task store.
func (db *MemoryDB) Tasks() store.TaskStore { return &memoryTaskStore{db: db} }

// Teams returns the team store.
func (db *MemoryDB) Teams() store.TeamStore { return &memoryTeamStore{db: db} }

// Notifications returns the notification store.
func (db *MemoryDB) Notifications() store.NotificationStore {
	return &memoryNotificationStore{db: db}
}

// FailOn makes every call of op (for example "teams.Update") return err
// until ClearFailures is called.
func (db *MemoryDB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures[op] = err
}

// ClearFailures removes every injected failure.
func (db *MemoryDB) ClearFailures() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures = make(map[string]error)
}

// Commits returns how many units of work RunInTx committed.
func (db *MemoryDB) Commits() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.commits
}

// Rollbacks returns how many units of work RunInTx rolled back.
func (db *MemoryDB) Rollbacks() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.rollbacks
}

// RunInTx runs fn with a nil *sql.Tx. When fn fails or panics every table
// is restored to its state before the call. Units of work are serialized.
func (db *MemoryDB) RunInTx(ctx context.Context, fn store.TxFn) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
		if err != nil {
			db.restore(snap)
			return
		}
		db.mu.Lock()
		db.commits++
		db.mu.Unlock()
	}()

	return fn(ctx, (*sql.Tx)(nil))
}

// fail returns the injected error for op. Callers hold db.mu.
func (db *MemoryDB) fail(op string) error {
	return db.failures[op]
}

type snapshot struct {
	users         map[uuid.UUID]domain.User
	teams         map[uuid.UUID]domain.Team
	tasks         map[uuid.UUID]domain.Task
	notifications map[uuid.UUID]domain.Notification
}

func (db *MemoryDB) snapshot() snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()

	s := snapshot{
		users:         make(map[uuid.UUID]domain.User, len(db.users)),
		teams:         make(map[uuid.UUID]domain.Team, len(db.teams)),
		tasks:         make(map[uuid.UUID]domain.Task, len(db.tasks)),
		notifications: make(map[uuid.UUID]domain.Notification, len(db.notifications)),
	}
	for id, u := range db.users {
		s.users[id] = cloneUser(u)
	}
	for id, t := range db.teams {
		s.teams[id] = cloneTeam(t)
	}
	for id, t := range db.tasks {
		s.tasks[id] = cloneTask(t)
	}
	for id, n := range db.notifications {
		s.notifications[id] = n
	}
	return s
}

func (db *MemoryDB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = s.users
	db.teams = s.teams
	db.tasks = s.tasks
	db.notifications = s.notifications
	db.rollbacks++
}

func cloneUser(u domain.User) domain.User {
	if u.TeamID != nil {
		id := *u.TeamID
		u.TeamID = &id
	}
	return u
}

func cloneTeam(t domain.Team) domain.Team {
	t.MemberIDs = append([]uuid.UUID(nil), t.MemberIDs...)
	return t
}

func cloneTask(t domain.Task) domain.Task {
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		t.AssignedTo = &id
	}
	if t.CompletionTimeHours != nil {
		h := *t.CompletionTimeHours
		t.CompletionTimeHours = &h
	}
	return t
}

package testutils

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
)

type memoryUserStore struct{ db *MemoryDB }

func (s *memoryUserStore) Create(ctx context.Context, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("users.Create"); err != nil {
		return err
	}
	if err := user.Validate(); err != nil {
		return err
	}
	for _, existing := range s.db.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.ErrEmailExists
		}
	}
	s.db.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *memoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memoryUserStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("users.GetByIDs"); err != nil {
		return nil, err
	}
	out := make([]*domain.User, 0, len(ids))
	for _, id := range domain.UniqueIDs(ids) {
		if u, ok := s.db.users[id]; ok {
			c := cloneUser(u)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memoryUserStore) SetTeam(ctx context.Context, userIDs []uuid.UUID, teamID *uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("users.SetTeam"); err != nil {
		return err
	}
	for _, id := range userIDs {
		u, ok := s.db.users[id]
		if !ok {
			continue
		}
		if teamID == nil {
			u.TeamID = nil
		} else {
			t := *teamID
			u.TeamID = &t
		}
		s.db.users[id] = u
	}
	return nil
}

func (s *memoryUserStore) ClearTeam(ctx context.Context, teamID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("users.ClearTeam"); err != nil {
		return err
	}
	for id, u := range s.db.users {
		if u.InTeam(teamID) {
			u.TeamID = nil
			s.db.users[id] = u
		}
	}
	return nil
}

func (s *memoryUserStore) UpdatePreferences(
	ctx context.Context,
	id uuid.UUID,
	prefs domain.NotificationPreferences,
) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("users.UpdatePreferences"); err != nil {
		return err
	}
	u, ok := s.db.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.NotificationPreferences = prefs
	s.db.users[id] = u
	return nil
}

// Delete mirrors the schema's cascades: owned tasks and received
// notifications go, assignments and sent notifications lose the reference.
func (s *memoryUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return store.ErrUserNotFound
	}
	for _, team := range s.db.teams {
		if team.ManagerID == id {
			return store.ErrInvalidEntity
		}
	}
	delete(s.db.users, id)

	for taskID, t := range s.db.tasks {
		switch {
		case t.OwnerID == id:
			delete(s.db.tasks, taskID)
		case t.IsAssignedTo(id):
			t.AssignedTo = nil
			s.db.tasks[taskID] = t
		}
	}
	for nID, n := range s.db.notifications {
		switch {
		case n.RecipientID == id:
			delete(s.db.notifications, nID)
		case n.SenderID == id:
			n.SenderID = uuid.Nil
			s.db.notifications[nID] = n
		}
	}
	for teamID, team := range s.db.teams {
		if team.CreatedBy == id {
			team.CreatedBy = uuid.Nil
			s.db.teams[teamID] = team
		}
		if team.HasMember(id) {
			kept := team.MemberIDs[:0]
			for _, m := range team.MemberIDs {
				if m != id {
					kept = append(kept, m)
				}
			}
			team.MemberIDs = kept
			s.db.teams[teamID] = team
		}
	}
	return nil
}

func (s *memoryUserStore) WithTx(*sql.Tx) store.UserStore { return s }

type memoryTaskStore struct{ db *MemoryDB }

func (s *memoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("tasks.Create"); err != nil {
		return err
	}
	if err := s.checkRefs(task); err != nil {
		return err
	}
	s.db.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *memoryTaskStore) checkRefs(task *domain.Task) error {
	if _, ok := s.db.users[task.OwnerID]; !ok {
		return store.ErrInvalidEntity
	}
	if task.AssignedTo != nil {
		if _, ok := s.db.users[*task.AssignedTo]; !ok {
			return store.ErrInvalidEntity
		}
	}
	return nil
}

func (s *memoryTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("tasks.GetByID"); err != nil {
		return nil, err
	}
	t, ok := s.db.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	c := cloneTask(t)
	return &c, nil
}

func (s *memoryTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("tasks.List"); err != nil {
		return nil, err
	}
	out := make([]*domain.Task, 0, len(s.db.tasks))
	for _, t := range s.db.tasks {
		if filter.VisibleTo != nil && t.OwnerID != *filter.VisibleTo && !t.IsAssignedTo(*filter.VisibleTo) {
			continue
		}
		c := cloneTask(t)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *memoryTaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("tasks.Update"); err != nil {
		return err
	}
	if _, ok := s.db.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	if err := s.checkRefs(task); err != nil {
		return err
	}
	s.db.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *memoryTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("tasks.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.db.tasks, id)
	return nil
}

func (s *memoryTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

type memoryTeamStore struct{ db *MemoryDB }

func (s *memoryTeamStore) nameTaken(name string, excludeID uuid.UUID) bool {
	for id, t := range s.db.teams {
		if id != excludeID && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (s *memoryTeamStore) Create(ctx context.Context, team *domain.Team) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("teams.Create"); err != nil {
		return err
	}
	if s.nameTaken(team.Name, uuid.Nil) {
		return store.ErrTeamNameExists
	}
	if err := s.checkRefs(team); err != nil {
		return err
	}
	s.db.teams[team.ID] = cloneTeam(*team)
	return nil
}

func (s *memoryTeamStore) checkRefs(team *domain.Team) error {
	if _, ok := s.db.users[team.ManagerID]; !ok {
		return store.ErrInvalidEntity
	}
	for _, id := range team.MemberIDs {
		if _, ok := s.db.users[id]; !ok {
			return store.ErrInvalidEntity
		}
	}
	return nil
}

func (s *memoryTeamStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("teams.GetByID"); err != nil {
		return nil, err
	}
	t, ok := s.db.teams[id]
	if !ok {
		return nil, store.ErrTeamNotFound
	}
	c := cloneTeam(t)
	return &c, nil
}

func (s *memoryTeamStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	return s.GetByID(ctx, id)
}

func (s *memoryTeamStore) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("teams.NameExists"); err != nil {
		return false, err
	}
	return s.nameTaken(domain.NormalizeTeamName(name), excludeID), nil
}

func (s *memoryTeamStore) List(ctx context.Context) ([]*domain.Team, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]*domain.Team, 0, len(s.db.teams))
	for _, t := range s.db.teams {
		c := cloneTeam(t)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *memoryTeamStore) Update(ctx context.Context, team *domain.Team) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("teams.Update"); err != nil {
		return err
	}
	if _, ok := s.db.teams[team.ID]; !ok {
		return store.ErrTeamNotFound
	}
	if s.nameTaken(team.Name, team.ID) {
		return store.ErrTeamNameExists
	}
	if err := s.checkRefs(team); err != nil {
		return err
	}
	s.db.teams[team.ID] = cloneTeam(*team)
	return nil
}

func (s *memoryTeamStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("teams.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.teams[id]; !ok {
		return store.ErrTeamNotFound
	}
	delete(s.db.teams, id)
	for userID, u := range s.db.users {
		if u.InTeam(id) {
			u.TeamID = nil
			s.db.users[userID] = u
		}
	}
	return nil
}

func (s *memoryTeamStore) WithTx(*sql.Tx) store.TeamStore { return s }

type memoryNotificationStore struct{ db *MemoryDB }

func (s *memoryNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("notifications.Create"); err != nil {
		return err
	}
	if _, ok := s.db.users[n.RecipientID]; !ok {
		return store.ErrInvalidEntity
	}
	s.db.notifications[n.ID] = *n
	return nil
}

func (s *memoryNotificationStore) ListForRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	limit int,
) ([]*domain.NotificationView, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("notifications.ListForRecipient"); err != nil {
		return nil, err
	}

	out := make([]*domain.NotificationView, 0)
	for _, n := range s.db.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		view := &domain.NotificationView{Notification: n}
		if sender, ok := s.db.users[n.SenderID]; ok {
			view.Sender = &domain.UserSummary{ID: sender.ID, FullName: sender.FullName, Email: sender.Email}
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryNotificationStore) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, store.ErrNotificationNotFound
	}
	n.Read = true
	s.db.notifications[id] = n
	return &n, nil
}

func (s *memoryNotificationStore) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return store.ErrNotificationNotFound
	}
	delete(s.db.notifications, id)
	return nil
}

func (s *memoryNotificationStore) WithTx(*sql.Tx) store.NotificationStore { return s }

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/todo-service/internal/domain"
)

// MemoryStore keeps users and tasks in process memory. It backs local development
// when no database is configured and the service tests. Missing rows surface as
// pgx.ErrNoRows so callers map them exactly like the Postgres repositories.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	tasks map[string]memoryTask
	seq   int64
	now   func() time.Time
}

type memoryTask struct {
	task domain.Task
	seq  int64
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		tasks: make(map[string]memoryTask),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Tasks exposes the store as a TaskRepository.
func (s *MemoryStore) Tasks() TaskRepository { return memoryTasks{s} }

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return false, nil
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return false, ErrEmailTaken
		}
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return true, nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memoryUsers) UpdateSubscription(_ context.Context, id string, isSubscribed bool, ends *time.Time) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user.IsSubscribed = isSubscribed
	user.SubscriptionEnds = nil
	if ends != nil {
		end := *ends
		user.SubscriptionEnds = &end
	}
	user.UpdatedAt = s.now()
	s.users[id] = user
	return &user, nil
}

type memoryTasks struct{ s *MemoryStore }

func (r memoryTasks) CreateChecked(_ context.Context, task *domain.Task, check CreateCheck) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[task.OwnerID]
	if !ok {
		return pgx.ErrNoRows
	}
	count := 0
	for _, stored := range s.tasks {
		if stored.task.OwnerID == task.OwnerID {
			count++
		}
	}
	if check != nil {
		if err := check(&owner, count); err != nil {
			return err
		}
	}

	now := s.now()
	task.CreatedAt, task.UpdatedAt = now, now
	s.seq++
	s.tasks[task.ID] = memoryTask{task: *task, seq: s.seq}
	return nil
}

func (r memoryTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	task := stored.task
	return &task, nil
}

func (r memoryTasks) Update(_ context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		stored.task.Title = *patch.Title
	}
	if patch.Completed != nil {
		stored.task.Completed = *patch.Completed
	}
	stored.task.UpdatedAt = s.now()
	s.tasks[id] = stored
	task := stored.task
	return &task, nil
}

func (r memoryTasks) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tasks, id)
	return nil
}

func (r memoryTasks) List(_ context.Context, filter TaskFilter) ([]domain.Task, int, error) {
	r.s.mu.RLock()
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	matches := make([]memoryTask, 0)
	for _, stored := range r.s.tasks {
		if stored.task.OwnerID != filter.OwnerID {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(stored.task.Title), term) {
			continue
		}
		matches = append(matches, stored)
	}
	r.s.mu.RUnlock()

	// seq follows insertion order, so descending seq is newest first.
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].seq > matches[j].seq
	})

	total := len(matches)
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]domain.Task, 0, end-start)
	for _, stored := range matches[start:end] {
		page = append(page, stored.task)
	}
	return page, total, nil
}

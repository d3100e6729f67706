package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
)

type fixture struct {
	store         *repository.MemoryStore
	tasks         *TaskService
	subscriptions *SubscriptionService
	admin         *AdminService

	mu       sync.Mutex
	now      time.Time
	recorded []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryStore(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, evt events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.recorded = append(f.recorded, evt)
			return nil
		})
	}

	guard := auth.NewGuard()
	f.tasks = NewTaskService(TaskDependencies{
		TaskRepo:   f.store.Tasks(),
		Guard:      guard,
		Clock:      f.clock,
		Dispatcher: dispatcher,
	})
	f.subscriptions = NewSubscriptionService(SubscriptionDependencies{
		UserRepo:   f.store.Users(),
		Guard:      guard,
		Clock:      f.clock,
		Dispatcher: dispatcher,
	})
	f.admin = NewAdminService(AdminDependencies{
		UserRepo:      f.store.Users(),
		Tasks:         f.tasks,
		Subscriptions: f.subscriptions,
		Guard:         guard,
	})
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) published(eventType events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, evt := range f.recorded {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// member provisions a user and returns a member principal for it.
func (f *fixture) member(t *testing.T, id string) *domain.Principal {
	t.Helper()
	created, err := f.store.Users().Create(context.Background(), &domain.User{ID: id, Email: id + "@example.com"})
	require.NoError(t, err)
	require.True(t, created)
	return &domain.Principal{UserID: id, Role: domain.RoleMember}
}

func (f *fixture) adminPrincipal(t *testing.T) *domain.Principal {
	t.Helper()
	p := f.member(t, "admin_1")
	p.Role = domain.RoleAdmin
	return p
}

func (f *fixture) createTask(t *testing.T, p *domain.Principal, title string) *domain.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), p, title)
	require.NoError(t, err)
	return task
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

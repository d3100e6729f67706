package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

func TestCreateTaskValidatesTitle(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n", strings.Repeat("x", domain.MaxTaskTitleLength+1)} {
		_, err := f.tasks.CreateTask(ctx, alice, title)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "title %q", title)
	}

	task := f.createTask(t, alice, "  Buy milk  ")
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "alice", task.OwnerID)
	assert.False(t, task.Completed)
	assert.NotEmpty(t, task.ID)
	assert.Len(t, f.published(events.EventTaskCreated), 1)
}

func TestCreateTaskRequiresProvisionedUser(t *testing.T) {
	f := newFixture(t)
	ghost := &domain.Principal{UserID: "ghost", Role: domain.RoleMember}

	_, err := f.tasks.CreateTask(context.Background(), ghost, "anything")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAnonymousCallerIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, nil, "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = f.tasks.ListTasks(ctx, nil, ListInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = f.tasks.UpdateTask(ctx, nil, "missing", domain.TaskPatch{Completed: boolPtr(true)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	assert.True(t, apperrors.HasCode(f.tasks.DeleteTask(ctx, nil, "missing"), apperrors.CodeUnauthorized))
}

func TestFreeTierQuota(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")

	for i := 0; i < domain.FreeTierTaskLimit; i++ {
		f.createTask(t, alice, fmt.Sprintf("task %d", i))
	}

	_, err := f.tasks.CreateTask(context.Background(), alice, "one too many")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeQuotaExceeded, domainErr.Code)
	assert.Equal(t, 403, domainErr.HTTPStatus)
	assert.Equal(t, domain.FreeTierTaskLimit, domainErr.Details["limit"])

	rejections := f.published(events.EventQuotaExceeded)
	require.Len(t, rejections, 1)
	payload := rejections[0].Payload.(events.QuotaExceededPayload)
	assert.Equal(t, domain.FreeTierTaskLimit, payload.Count)

	page, err := f.tasks.ListTasks(context.Background(), alice, ListInput{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.FreeTierTaskLimit, page.TotalCount)
}

func TestFreeTierQuotaUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tasks.CreateTask(context.Background(), alice, fmt.Sprintf("task %d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.HasCode(err, apperrors.CodeQuotaExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, domain.FreeTierTaskLimit, created)
	assert.Equal(t, 20-domain.FreeTierTaskLimit, rejected)
}

func TestSubscribedUserHasNoQuota(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	_, err := f.subscriptions.Subscribe(context.Background(), alice, "alice")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		f.createTask(t, alice, fmt.Sprintf("task %d", i))
	}
}

func TestLapsedSubscriptionFallsBackToFreeTier(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	_, err := f.subscriptions.Subscribe(context.Background(), alice, "alice")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.createTask(t, alice, fmt.Sprintf("task %d", i))
	}

	f.advance(domain.SubscriptionPeriod + time.Hour)
	_, err = f.tasks.CreateTask(context.Background(), alice, "after lapse")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeQuotaExceeded))
}

func TestCreatedTaskIsListedFirst(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	_, err := f.subscriptions.Subscribe(context.Background(), alice, "alice")
	require.NoError(t, err)

	f.createTask(t, alice, "older")
	newest := f.createTask(t, alice, "newer")

	page, err := f.tasks.ListTasks(context.Background(), alice, ListInput{Page: 1})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, newest.ID, page.Items[0].ID)
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	_, err := f.subscriptions.Subscribe(context.Background(), alice, "alice")
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		f.createTask(t, alice, fmt.Sprintf("task %02d", i))
	}

	seen := map[string]bool{}
	for pageNumber, want := range map[int]int{1: 10, 2: 10, 3: 5, 4: 0} {
		page, err := f.tasks.ListTasks(context.Background(), alice, ListInput{Page: pageNumber, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Items, want, "page %d", pageNumber)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 25, page.TotalCount)
		assert.Equal(t, pageNumber, page.CurrentPage)
		for _, item := range page.Items {
			assert.False(t, seen[item.ID], "task %s returned twice", item.ID)
			seen[item.ID] = true
		}
	}
	assert.Len(t, seen, 25)

	page, err := f.tasks.ListTasks(context.Background(), alice, ListInput{Page: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, domain.DefaultPageSize, page.PageSize)
}

func TestListHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	f.createTask(t, alice, "only task")

	page, err := f.tasks.ListTasks(context.Background(), alice, ListInput{Page: math.MaxInt / 5, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.TotalCount)
}

func TestListIsScopedToCaller(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	bob := f.member(t, "bob")
	f.createTask(t, alice, "alice task")
	f.createTask(t, bob, "bob task")

	page, err := f.tasks.ListTasks(context.Background(), bob, ListInput{Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob task", page.Items[0].Title)
}

func TestListSearchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	f.createTask(t, alice, "Buy milk")
	f.createTask(t, alice, "Walk dog")

	tests := []struct {
		term string
		want int
	}{
		{"milk", 1},
		{"MILK", 1},
		{"eggs", 0},
		{"", 2},
	}
	for _, tt := range tests {
		page, err := f.tasks.ListTasks(context.Background(), alice, ListInput{Page: 1, Search: tt.term})
		require.NoError(t, err)
		assert.Len(t, page.Items, tt.want, "term %q", tt.term)
		if tt.want == 0 {
			assert.Equal(t, 0, page.TotalPages)
		}
	}
}

func TestUpdateTaskPartialPatch(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	task := f.createTask(t, alice, "Buy milk")
	ctx := context.Background()

	done, err := f.tasks.UpdateTask(ctx, alice, task.ID, domain.TaskPatch{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, "Buy milk", done.Title)

	undone, err := f.tasks.UpdateTask(ctx, alice, task.ID, domain.TaskPatch{Completed: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, task.ID, undone.ID)
	assert.Equal(t, task.Title, undone.Title)
	assert.Equal(t, task.OwnerID, undone.OwnerID)
	assert.Equal(t, task.Completed, undone.Completed)
	assert.True(t, task.CreatedAt.Equal(undone.CreatedAt))

	renamed, err := f.tasks.UpdateTask(ctx, alice, task.ID, domain.TaskPatch{Title: strPtr("  Buy oat milk ")})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", renamed.Title)
	assert.False(t, renamed.Completed)

	updates := f.published(events.EventTaskUpdated)
	require.Len(t, updates, 3)
	assert.Equal(t, []string{"title"}, updates[2].Payload.(events.TaskUpdatedPayload).ChangedFields)
}

func TestUpdateTaskValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	task := f.createTask(t, alice, "Buy milk")
	ctx := context.Background()

	_, err := f.tasks.UpdateTask(ctx, alice, task.ID, domain.TaskPatch{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.tasks.UpdateTask(ctx, alice, task.ID, domain.TaskPatch{Title: strPtr("   ")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.tasks.UpdateTask(ctx, alice, "missing", domain.TaskPatch{Completed: boolPtr(true)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestForeignTaskIsForbidden(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	bob := f.member(t, "bob")
	task := f.createTask(t, alice, "private")
	ctx := context.Background()

	patches := []domain.TaskPatch{
		{},
		{Completed: boolPtr(true)},
		{Title: strPtr("")},
		{Title: strPtr("hijacked"), Completed: boolPtr(false)},
	}
	for _, patch := range patches {
		_, err := f.tasks.UpdateTask(ctx, bob, task.ID, patch)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "patch %+v: %v", patch, err)
	}

	_, err := f.tasks.GetTask(ctx, bob, task.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.True(t, apperrors.HasCode(f.tasks.DeleteTask(ctx, bob, task.ID), apperrors.CodeForbidden))

	stored, err := f.tasks.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", stored.Title)
	assert.False(t, stored.Completed)
}

func TestAdminMayOperateOnAnyTask(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	admin := f.adminPrincipal(t)
	task := f.createTask(t, alice, "private")
	ctx := context.Background()

	updated, err := f.tasks.UpdateTask(ctx, admin, task.ID, domain.TaskPatch{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	require.NoError(t, f.tasks.DeleteTask(ctx, admin, task.ID))
	deleted := f.published(events.EventTaskDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, "alice", deleted[0].UserID)
	assert.Equal(t, "admin_1", deleted[0].ActorID)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	alice := f.member(t, "alice")
	task := f.createTask(t, alice, "short lived")
	ctx := context.Background()

	require.NoError(t, f.tasks.DeleteTask(ctx, alice, task.ID))

	_, err := f.tasks.GetTask(ctx, alice, task.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(f.tasks.DeleteTask(ctx, alice, task.ID), apperrors.CodeNotFound))

	// The freed slot is usable again.
	for i := 0; i < domain.FreeTierTaskLimit; i++ {
		f.createTask(t, alice, fmt.Sprintf("task %d", i))
	}
}

func TestQuotaPolicy(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	policy := NewQuotaPolicy()

	tests := []struct {
		name  string
		user  domain.User
		count int
		want  bool
	}{
		{"free under limit", domain.User{}, 2, true},
		{"free at limit", domain.User{}, 3, false},
		{"subscribed", domain.User{IsSubscribed: true, SubscriptionEnds: &future}, 50, true},
		{"lapsed", domain.User{IsSubscribed: true, SubscriptionEnds: &past}, 3, false},
		{"lapsed under limit", domain.User{IsSubscribed: true, SubscriptionEnds: &past}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := tt.user
			assert.Equal(t, tt.want, policy.CanCreate(&user, tt.count, now))
		})
	}
}

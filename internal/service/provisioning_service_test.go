package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
	"github.com/spec-kit/todo-service/internal/webhook"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

var webhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("provisioning-test-secret"))

type memoryDeliveries struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *memoryDeliveries) Seen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.seen[id], nil
}

func (m *memoryDeliveries) MarkProcessed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[id] = true
	return nil
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

type provisioningFixture struct {
	store      *repository.MemoryStore
	svc        *ProvisioningService
	signer     *webhook.Signer
	deliveries *memoryDeliveries
	roles      *recordingInvalidator
	provisions int
	mu         sync.Mutex
}

func newProvisioningFixture(t *testing.T) *provisioningFixture {
	t.Helper()
	verifier, err := webhook.NewVerifier(webhookSecret)
	require.NoError(t, err)
	signer, err := webhook.NewSigner(webhookSecret)
	require.NoError(t, err)

	f := &provisioningFixture{
		store:      repository.NewMemoryStore(),
		signer:     signer,
		deliveries: &memoryDeliveries{},
		roles:      &recordingInvalidator{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventUserProvisioned, func(context.Context, events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.provisions++
		return nil
	})
	f.svc = NewProvisioningService(ProvisioningDependencies{
		UserRepo:   f.store.Users(),
		Verifier:   verifier,
		Deliveries: f.deliveries,
		Roles:      f.roles,
		Dispatcher: dispatcher,
	})
	return f
}

func (f *provisioningFixture) deliver(t *testing.T, deliveryID string, payload string) (*ProvisioningResult, error) {
	t.Helper()
	headers, err := f.signer.Headers(deliveryID, time.Now(), []byte(payload))
	require.NoError(t, err)
	return f.svc.Receive(context.Background(), []byte(payload), headers)
}

func userCreatedPayload(userID, email string) string {
	return fmt.Sprintf(`{"type":"user.created","data":{"id":%q,"primary_email_address_id":"idn_1","email_addresses":[{"id":"idn_1","email_address":%q}]}}`, userID, email)
}

func TestProvisionCreatesUser(t *testing.T) {
	f := newProvisioningFixture(t)

	result, err := f.deliver(t, "msg_1", userCreatedPayload("user_1", "one@example.com"))
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, result.State)
	assert.True(t, result.Created)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "user_1", result.UserID)
	assert.Equal(t, webhook.EventUserCreated, result.EventType)

	user, err := f.store.Users().GetByID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "one@example.com", user.Email)
	assert.False(t, user.IsSubscribed)
	assert.Nil(t, user.SubscriptionEnds)
	assert.Equal(t, 1, f.provisions)
}

func TestProvisionIsIdempotent(t *testing.T) {
	f := newProvisioningFixture(t)
	payload := userCreatedPayload("user_1", "one@example.com")

	_, err := f.deliver(t, "msg_1", payload)
	require.NoError(t, err)

	// Same delivery id short-circuits on the delivery log.
	result, err := f.deliver(t, "msg_1", payload)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, result.State)
	assert.True(t, result.Duplicate)

	// A fresh delivery id for the same identity hits the store and is a no-op.
	result, err = f.deliver(t, "msg_2", payload)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, result.State)
	assert.True(t, result.Duplicate)
	assert.False(t, result.Created)

	assert.Equal(t, 1, f.provisions)
}

func TestProvisionConcurrentDuplicates(t *testing.T) {
	f := newProvisioningFixture(t)
	payload := userCreatedPayload("user_1", "one@example.com")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			headers, err := f.signer.Headers(fmt.Sprintf("msg_%d", i), time.Now(), []byte(payload))
			if !assert.NoError(t, err) {
				return
			}
			result, err := f.svc.Receive(context.Background(), []byte(payload), headers)
			if !assert.NoError(t, err) {
				return
			}
			if result.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, f.provisions)
}

func TestProvisionRejectsBadSignature(t *testing.T) {
	f := newProvisioningFixture(t)
	payload := []byte(userCreatedPayload("user_1", "one@example.com"))

	headers, err := f.signer.Headers("msg_1", time.Now(), payload)
	require.NoError(t, err)
	headers.Set(webhook.HeaderSignature, "v1,"+base64.StdEncoding.EncodeToString([]byte("forged")))

	result, err := f.svc.Receive(context.Background(), payload, headers)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidSignature))
	assert.Equal(t, StateRejected, result.State)

	result, err = f.svc.Receive(context.Background(), payload, http.Header{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidSignature))
	assert.Equal(t, StateRejected, result.State)

	_, err = f.store.Users().GetByID(context.Background(), "user_1")
	assert.Error(t, err)
}

func TestProvisionRejectsMalformedEvents(t *testing.T) {
	f := newProvisioningFixture(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not json`},
		{"missing type", `{"data":{"id":"user_1"}}`},
		{"missing user id", `{"type":"user.created","data":{"email_addresses":[]}}`},
		{"no primary email", `{"type":"user.created","data":{"id":"user_1","primary_email_address_id":"idn_2","email_addresses":[{"id":"idn_1","email_address":"a@b.c"}]}}`},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.deliver(t, fmt.Sprintf("msg_%d", i), tt.payload)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeMalformedEvent), "got %v", err)
			assert.Equal(t, StateRejected, result.State)
		})
	}

	// Rejected deliveries are not remembered, so a corrected redelivery is processed.
	assert.Empty(t, f.deliveries.seen)
}

func TestProvisionEmailConflict(t *testing.T) {
	f := newProvisioningFixture(t)
	_, err := f.deliver(t, "msg_1", userCreatedPayload("user_1", "shared@example.com"))
	require.NoError(t, err)

	result, err := f.deliver(t, "msg_2", userCreatedPayload("user_2", "shared@example.com"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, StateRejected, result.State)
}

func TestUserChangeInvalidatesRole(t *testing.T) {
	f := newProvisioningFixture(t)

	result, err := f.deliver(t, "msg_1", `{"type":"user.updated","data":{"id":"user_1"}}`)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, result.State)

	_, err = f.deliver(t, "msg_2", `{"type":"user.deleted","data":{"id":"user_2","deleted":true}}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"user_1", "user_2"}, f.roles.ids)
}

func TestUnknownEventIsAcknowledged(t *testing.T) {
	f := newProvisioningFixture(t)

	result, err := f.deliver(t, "msg_1", `{"type":"session.created","data":{"id":"sess_1"}}`)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, result.State)
	assert.True(t, result.Ignored)
}

func TestDeliveryLogFailureIsSoft(t *testing.T) {
	f := newProvisioningFixture(t)
	f.deliveries.err = errors.New("redis down")

	result, err := f.deliver(t, "msg_1", userCreatedPayload("user_1", "one@example.com"))
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, result.State)
	assert.True(t, result.Created)
}

package service

import (
	"time"

	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/repository"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// QuotaPolicy decides whether a user may own another task.
type QuotaPolicy struct {
	FreeLimit int
}

// NewQuotaPolicy returns the free-tier policy.
func NewQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{FreeLimit: domain.FreeTierTaskLimit}
}

// CanCreate allows unlimited tasks for an active subscription; a lapsed subscription
// counts as free tier.
func (q QuotaPolicy) CanCreate(user *domain.User, currentCount int, now time.Time) bool {
	if user.HasActiveSubscription(now) {
		return true
	}
	return currentCount < q.limit()
}

// Check adapts the policy to the repository's in-transaction hook. The observed count is
// written to seen when the check rejects.
func (q QuotaPolicy) Check(now time.Time, seen *int) repository.CreateCheck {
	return func(owner *domain.User, currentCount int) error {
		if q.CanCreate(owner, currentCount, now) {
			return nil
		}
		if seen != nil {
			*seen = currentCount
		}
		return apperrors.NewQuotaExceeded(q.limit())
	}
}

func (q QuotaPolicy) limit() int {
	if q.FreeLimit <= 0 {
		return domain.FreeTierTaskLimit
	}
	return q.FreeLimit
}

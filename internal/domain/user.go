package domain

import "time"

// User is the task owner record provisioned from the identity provider.
type User struct {
	ID               string
	Email            string
	IsSubscribed     bool
	SubscriptionEnds *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasActiveSubscription treats a subscription whose end date has passed as lapsed.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u == nil || !u.IsSubscribed || u.SubscriptionEnds == nil {
		return false
	}
	return u.SubscriptionEnds.After(now)
}

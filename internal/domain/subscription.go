package domain

import "time"

const (
	// FreeTierTaskLimit caps the number of tasks a user without a subscription may own.
	FreeTierTaskLimit = 3
	// SubscriptionPeriod is the window granted by each subscribe call.
	SubscriptionPeriod = 30 * 24 * time.Hour
)

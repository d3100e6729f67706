package dto

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Message   string `json:"message"`
	State     string `json:"state"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

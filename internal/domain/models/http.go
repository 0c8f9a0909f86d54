package models

// SlotRequest is the body of a notification slot request. TTL is
// bounded to keep abandoned slots from pinning capacity.
type SlotRequest struct {
	TTLMs int `json:"ttlMs" default:"5000" validate:"gte=100,lte=3600000"`
}

// StatusResponse reports the detector state machine and feed health.
type StatusResponse struct {
	Status      Status  `json:"status"`
	Connected   bool    `json:"connected"`
	Threshold   float64 `json:"threshold"`
	ActiveAlert bool    `json:"activeAlert"`
	QueuedCount int     `json:"queuedCount"`
	ActiveSlots int     `json:"activeSlots"`
}

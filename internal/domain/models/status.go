package models

// Status names a state of the dip detection engine.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusConnecting  Status = "connecting"
	StatusListening   Status = "listening"
	StatusAlertFiring Status = "alert_firing"
	StatusCooldown    Status = "cooldown"
	StatusError       Status = "error"
)

func (s Status) String() string { return string(s) }

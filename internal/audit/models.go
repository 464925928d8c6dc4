package audit

import "time"

// Event is one recorded authorization or tenancy decision. Events are
// advisory and written out of band; they never affect request outcomes.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CompanyID  string    `json:"company_id,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Outcomes recorded for an event.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

package api

import (
	"net/http"

	"github.com/propertyflow/propertyflow/internal/audit"
	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/tenant"
)

// EventRecorder accepts audit events. It is satisfied by audit.Collector.
type EventRecorder interface {
	Record(e audit.Event)
}

// recordEvent emits an audit event for an action, filling user and company
// from the request context. It is a no-op when no recorder is configured.
func recordEvent(rec EventRecorder, r *http.Request, action, resource, outcome, reason string) {
	if rec == nil {
		return
	}

	e := audit.Event{
		Action:   action,
		Resource: resource,
		Outcome:  outcome,
		Reason:   reason,
	}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		e.UserID = u.ID
	}
	if companyID, _ := tenant.ActiveCompanyFromContext(r.Context()); companyID != "" {
		e.CompanyID = companyID
	}

	rec.Record(e)
}

package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging.
// Every posted transaction, disposal, and corporate-action adjustment
// produces one, with full before/after state of the entities it touched.
type AuditLog struct {
	ID           string
	ActorID      string // Who performed the action
	Action       string // What action (transaction.post, disposal.execute, etc.)
	ResourceType string // Type of resource (transaction, lot, position)
	ResourceID   string // ID of the resource
	RequestID    string // Request ID for tracing
	BeforeState  JSON   // State before the action
	AfterState   JSON   // State after the action
	Status       string // success, failure, error
	ErrorMessage string // If status=error, the error message
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Account actions
	AuditActionAccountCreate     AuditAction = "account.create"
	AuditActionAccountDeactivate AuditAction = "account.deactivate"

	// Posting actions
	AuditActionTransactionPost    AuditAction = "transaction.post"
	AuditActionTransactionReverse AuditAction = "transaction.reverse"

	// Lot actions
	AuditActionLotOpen         AuditAction = "lot.open"
	AuditActionDisposalExecute AuditAction = "disposal.execute"
	AuditActionPositionFreeze  AuditAction = "position.freeze"

	// Corporate action
	AuditActionCorporateApply AuditAction = "corporate_action.apply"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// Package events holds the raw lead domain events and re-exports the
// platform bus so modules only import this package.
package events

import (
	"telecall_backend/platform/events"

	"github.com/google/uuid"
)

type (
	InMemoryBus = events.InMemoryBus
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Raw Lead Domain Events
// =============================================================================

// RawLeadsIngested is published after a bulk feed or CSV import inserts records.
type RawLeadsIngested struct {
	BaseEvent
	BatchName         *string `json:"batchName,omitempty"`
	Received          int     `json:"received"`
	Inserted          int     `json:"inserted"`
	DuplicatesSkipped int     `json:"duplicatesSkipped"`
}

func (e RawLeadsIngested) EventName() string { return "rawleads.ingested" }

// RawLeadsAssigned is published when records are handed to a telecaller.
type RawLeadsAssigned struct {
	BaseEvent
	AssigneeID uuid.UUID `json:"assigneeId"`
	Requested  int       `json:"requested"`
	Updated    int       `json:"updated"`
}

func (e RawLeadsAssigned) EventName() string { return "rawleads.assigned" }

// RawLeadConverted is published once per raw lead when its cold CRM lead is created.
type RawLeadConverted struct {
	BaseEvent
	RawLeadID   uuid.UUID `json:"rawLeadId"`
	LeadID      uuid.UUID `json:"leadId"`
	CreatedByID uuid.UUID `json:"createdById"`
	Phone       string    `json:"phone"`
}

func (e RawLeadConverted) EventName() string { return "rawleads.converted" }

// RawLeadConversionContended is published when a conversion lost the race
// to a concurrent writer and no lead was created.
type RawLeadConversionContended struct {
	BaseEvent
	RawLeadID uuid.UUID `json:"rawLeadId"`
}

func (e RawLeadConversionContended) EventName() string { return "rawleads.conversion_contended" }

// RawLeadsRemoved is published after single or bulk deletion.
type RawLeadsRemoved struct {
	BaseEvent
	IDs     []uuid.UUID `json:"ids"`
	Deleted int         `json:"deleted"`
}

func (e RawLeadsRemoved) EventName() string { return "rawleads.removed" }

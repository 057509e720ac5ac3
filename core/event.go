package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies one of the five kinds of ledger events.
// The set is closed: every event carries exactly one of the payload
// types below, and the projector's fold is exhaustive over them.
type EventType string

const (
	EventStrategicShift   EventType = "STRATEGIC_SHIFT"
	EventMoveCompleted    EventType = "MOVE_COMPLETED"
	EventUserInteraction  EventType = "USER_INTERACTION"
	EventAIRefinement     EventType = "AI_REFINEMENT"
	EventSystemCheckpoint EventType = "SYSTEM_CHECKPOINT"
)

// EventTypes lists every valid event type.
var EventTypes = []EventType{
	EventStrategicShift,
	EventMoveCompleted,
	EventUserInteraction,
	EventAIRefinement,
	EventSystemCheckpoint,
}

// Valid reports whether t is a member of the closed event-type set.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is one immutable fact in a tenant's ledger. Once appended it is
// never mutated or reordered; the ordered sequence of a tenant's events
// is the sole source of truth for its materialized state.
type Event struct {
	ID        string
	TenantID  string
	ContextID string // business-context identifier (ucid); empty for single-context tenants
	Type      EventType
	Payload   Payload
	CreatedAt time.Time
}

// Payload is the closed union of per-event-type payload schemas.
// Implementations live in this package only.
type Payload interface {
	eventType() EventType
}

// StrategicShiftPayload carries explicit patches to the tenant's
// identity, audience, and positioning. A nil patch leaves that
// sub-object untouched; within a patch, only non-nil fields overwrite.
type StrategicShiftPayload struct {
	Identity    *IdentityPatch    `json:"identity,omitempty"`
	Audience    *AudiencePatch    `json:"audience,omitempty"`
	Positioning *PositioningPatch `json:"positioning,omitempty"`
}

// MoveCompletedPayload records a shipped strategic move.
type MoveCompletedPayload struct {
	Milestone string `json:"milestone"`
}

// UserInteractionPayload records one user touchpoint. Kind is a free
// label ("chat", "search", ...); Query is set when Kind is "search".
type UserInteractionPayload struct {
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
	Query   string `json:"query,omitempty"`
}

// AIRefinementPayload carries model-generated insights, optionally with
// a delta patch applied the same way as a strategic shift.
type AIRefinementPayload struct {
	Insights     []string               `json:"insights"`
	DeltaUpdates *StrategicShiftPayload `json:"delta_updates,omitempty"`
}

// SystemCheckpointPayload is written by the sweeper when it compacts a
// batch of interaction events into one summarizing entry.
type SystemCheckpointPayload struct {
	Summary            string   `json:"summary"`
	KeyTakeaways       []string `json:"key_takeaways"`
	CompressedEventIDs []string `json:"compressed_event_ids"`
	CompressedCount    int      `json:"compressed_count"`
}

func (StrategicShiftPayload) eventType() EventType   { return EventStrategicShift }
func (MoveCompletedPayload) eventType() EventType    { return EventMoveCompleted }
func (UserInteractionPayload) eventType() EventType  { return EventUserInteraction }
func (AIRefinementPayload) eventType() EventType     { return EventAIRefinement }
func (SystemCheckpointPayload) eventType() EventType { return EventSystemCheckpoint }

// MarshalPayload serializes a payload for storage. The event type is
// stored alongside it and selects the schema on the way back in.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("nil payload")
	}
	return json.Marshal(p)
}

// UnmarshalPayload deserializes a stored payload according to the
// event type recorded with it.
func UnmarshalPayload(t EventType, data []byte) (Payload, error) {
	switch t {
	case EventStrategicShift:
		var p StrategicShiftPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventMoveCompleted:
		var p MoveCompletedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventUserInteraction:
		var p UserInteractionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventAIRefinement:
		var p AIRefinementPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventSystemCheckpoint:
		var p SystemCheckpointPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", t)
	}
}

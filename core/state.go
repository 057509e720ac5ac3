package core

// Identity is who the tenant is: name, mission, and voice.
type Identity struct {
	Name    string `json:"name,omitempty"`
	Mission string `json:"mission,omitempty"`
	Voice   string `json:"voice,omitempty"`
}

// IdentityPatch overwrites only its non-nil fields.
type IdentityPatch struct {
	Name    *string `json:"name,omitempty"`
	Mission *string `json:"mission,omitempty"`
	Voice   *string `json:"voice,omitempty"`
}

// Apply merges the patch into id, last writer wins per field.
func (p *IdentityPatch) Apply(id *Identity) {
	if p == nil {
		return
	}
	if p.Name != nil {
		id.Name = *p.Name
	}
	if p.Mission != nil {
		id.Mission = *p.Mission
	}
	if p.Voice != nil {
		id.Voice = *p.Voice
	}
}

// Audience is who the tenant speaks to.
type Audience struct {
	Primary    string   `json:"primary,omitempty"`
	PainPoints []string `json:"pain_points,omitempty"`
}

// AudiencePatch overwrites only its non-nil fields. A non-nil but empty
// PainPoints slice clears the list; nil leaves it untouched.
type AudiencePatch struct {
	Primary    *string   `json:"primary,omitempty"`
	PainPoints *[]string `json:"pain_points,omitempty"`
}

func (p *AudiencePatch) Apply(a *Audience) {
	if p == nil {
		return
	}
	if p.Primary != nil {
		a.Primary = *p.Primary
	}
	if p.PainPoints != nil {
		a.PainPoints = append([]string(nil), (*p.PainPoints)...)
	}
}

// Positioning is how the tenant differentiates.
type Positioning struct {
	Statement       string   `json:"statement,omitempty"`
	Differentiators []string `json:"differentiators,omitempty"`
}

// PositioningPatch overwrites only its non-nil fields.
type PositioningPatch struct {
	Statement       *string   `json:"statement,omitempty"`
	Differentiators *[]string `json:"differentiators,omitempty"`
}

func (p *PositioningPatch) Apply(pos *Positioning) {
	if p == nil {
		return
	}
	if p.Statement != nil {
		pos.Statement = *p.Statement
	}
	if p.Differentiators != nil {
		pos.Differentiators = append([]string(nil), (*p.Differentiators)...)
	}
}

// History tracks the fold's progress through the ledger.
type History struct {
	TotalEvents           int      `json:"total_events"`
	LastEventID           string   `json:"last_event_id,omitempty"`
	SignificantMilestones []string `json:"significant_milestones,omitempty"`
	EvolutionIndex        float64  `json:"evolution_index"`
}

// InteractionSnapshot is one entry in the bounded recent-interaction ring.
type InteractionSnapshot struct {
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
}

// Telemetry aggregates interaction volume. RecentInteractions and
// TopSearchQueries are bounded rings; TotalInteractions counts every
// interaction ever folded, including those later compacted away
// (checkpoints carry the compressed count forward).
type Telemetry struct {
	TotalInteractions  int                   `json:"total_interactions"`
	RecentInteractions []InteractionSnapshot `json:"recent_interactions,omitempty"`
	TopSearchQueries   []string              `json:"top_search_queries,omitempty"`
}

// MaterializedState is the derived, cacheable view of a tenant's
// business context. It must always equal the fold of the tenant's
// ordered event sequence; it is never written back to the ledger.
type MaterializedState struct {
	TenantID        string      `json:"tenant_id"`
	ContextID       string      `json:"context_id,omitempty"`
	Identity        Identity    `json:"identity"`
	Audience        Audience    `json:"audience"`
	Positioning     Positioning `json:"positioning"`
	EvolvedInsights []string    `json:"evolved_insights,omitempty"`
	History         History     `json:"history"`
	Telemetry       Telemetry   `json:"telemetry"`
}

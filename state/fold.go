package state

import (
	"math"

	"github.com/becomeliminal/strata-go-sdk/core"
)

// Bounds on the telemetry rings. Interaction counts are unbounded;
// the retained snapshots are not.
const (
	recentInteractionCap = 10
	searchQueryCap       = 20
)

// Replay folds an ordered event sequence into a fresh materialized
// state. Deterministic: the same sequence always produces the same
// state. Events must arrive in creation order; Replay never reorders.
func Replay(tenantID, contextID string, events []core.Event) *core.MaterializedState {
	s := &core.MaterializedState{
		TenantID:  tenantID,
		ContextID: contextID,
	}
	for i := range events {
		applyEvent(s, &events[i])
	}
	s.History.EvolutionIndex = evolutionIndex(s)
	return s
}

func applyEvent(s *core.MaterializedState, e *core.Event) {
	switch p := e.Payload.(type) {
	case core.StrategicShiftPayload:
		applyShift(s, &p)

	case core.MoveCompletedPayload:
		if p.Milestone != "" && !containsString(s.History.SignificantMilestones, p.Milestone) {
			s.History.SignificantMilestones = append(s.History.SignificantMilestones, p.Milestone)
		}

	case core.UserInteractionPayload:
		s.Telemetry.TotalInteractions++
		s.Telemetry.RecentInteractions = appendBounded(
			s.Telemetry.RecentInteractions,
			core.InteractionSnapshot{Kind: p.Kind, Content: p.Content},
			recentInteractionCap)
		if p.Kind == "search" && p.Query != "" {
			s.Telemetry.TopSearchQueries = appendBounded(
				s.Telemetry.TopSearchQueries, p.Query, searchQueryCap)
		}

	case core.AIRefinementPayload:
		for _, insight := range p.Insights {
			if insight != "" {
				s.EvolvedInsights = append(s.EvolvedInsights, insight)
			}
		}
		if p.DeltaUpdates != nil {
			applyShift(s, p.DeltaUpdates)
		}

	case core.SystemCheckpointPayload:
		if p.Summary != "" {
			s.EvolvedInsights = append(s.EvolvedInsights, p.Summary)
		}
		for _, takeaway := range p.KeyTakeaways {
			if takeaway != "" {
				s.EvolvedInsights = append(s.EvolvedInsights, takeaway)
			}
		}
		// Carry the pre-compaction interaction count across the sweep.
		s.Telemetry.TotalInteractions += p.CompressedCount
	}

	s.History.TotalEvents++
	s.History.LastEventID = e.ID
}

func applyShift(s *core.MaterializedState, p *core.StrategicShiftPayload) {
	p.Identity.Apply(&s.Identity)
	p.Audience.Apply(&s.Audience)
	p.Positioning.Apply(&s.Positioning)
}

// evolutionIndex scores strategic maturity in [1.0, 10.0]. Milestones
// (shipped work) weigh most, refinement insights less, and raw
// interaction volume least, capped so chat noise cannot run the score
// up. Rounded to two decimals.
func evolutionIndex(s *core.MaterializedState) float64 {
	milestones := float64(len(s.History.SignificantMilestones))
	insights := float64(len(s.EvolvedInsights))
	interactions := math.Min(float64(s.Telemetry.TotalInteractions), 40)

	index := 1.0 + 0.5*milestones + 0.3*insights + 0.05*interactions
	if index > 10.0 {
		index = 10.0
	}
	return math.Round(index*100) / 100
}

func appendBounded[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package core

// Importance classifies how much a tenant or agent's memory is worth
// keeping. The label set is closed; unknown labels resolve to
// ImportanceStandard.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceStandard Importance = "standard"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// RetentionRule is the numeric policy governing one memory tier for a
// resolved importance pair. All fields are non-negative.
type RetentionRule struct {
	MaxItems      int // cap on items held in a bounded tier
	MaxTokens     int // token budget for a tier's aggregate content
	TTLSeconds    int // working-tier entry lifetime
	RetentionDays int // long-term expiry stamped on writes for the janitor
	RecallLimit   int // max results returned by a recall
}

// Combine merges two rules field-wise by max: the more generous policy
// always wins, so a critical tenant is never starved by a low agent
// default (or vice versa). Commutative, associative, and idempotent.
func (r RetentionRule) Combine(other RetentionRule) RetentionRule {
	return RetentionRule{
		MaxItems:      maxInt(r.MaxItems, other.MaxItems),
		MaxTokens:     maxInt(r.MaxTokens, other.MaxTokens),
		TTLSeconds:    maxInt(r.TTLSeconds, other.TTLSeconds),
		RetentionDays: maxInt(r.RetentionDays, other.RetentionDays),
		RecallLimit:   maxInt(r.RecallLimit, other.RecallLimit),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

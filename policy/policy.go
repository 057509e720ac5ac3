// Package policy resolves importance classifications into numeric
// retention limits. Pure lookup, no I/O; every memory-tier read and
// write goes through Resolve before touching a store adapter.
package policy

import "github.com/becomeliminal/strata-go-sdk/core"

// Rules is the closed retention table. Every field increases
// monotonically from low to critical.
var Rules = map[core.Importance]core.RetentionRule{
	core.ImportanceLow: {
		MaxItems:      25,
		MaxTokens:     2000,
		TTLSeconds:    3600,
		RetentionDays: 7,
		RecallLimit:   3,
	},
	core.ImportanceStandard: {
		MaxItems:      50,
		MaxTokens:     4000,
		TTLSeconds:    21600,
		RetentionDays: 30,
		RecallLimit:   5,
	},
	core.ImportanceHigh: {
		MaxItems:      100,
		MaxTokens:     8000,
		TTLSeconds:    86400,
		RetentionDays: 90,
		RecallLimit:   8,
	},
	core.ImportanceCritical: {
		MaxItems:      200,
		MaxTokens:     16000,
		TTLSeconds:    259200,
		RetentionDays: 365,
		RecallLimit:   12,
	},
}

// Rule returns the table entry for one label. Unknown labels fall back
// to standard.
func Rule(imp core.Importance) core.RetentionRule {
	if r, ok := Rules[imp]; ok {
		return r
	}
	return Rules[core.ImportanceStandard]
}

// Resolve combines the tenant's and agent's rules into one effective
// rule, field-wise max. Always returns a valid rule.
func Resolve(tenant, agent core.Importance) core.RetentionRule {
	return Rule(tenant).Combine(Rule(agent))
}

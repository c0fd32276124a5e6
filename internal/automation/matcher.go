package automation

import "sort"

// MatchRules selects the active rules whose trigger matches the event and
// whose condition chain evaluates true, ordered by ascending priority.
// Ties keep the store's order (stable sort over creation order). Priority
// never short-circuits: every matching rule fires independently.
func MatchRules(event Event, rules []Rule) []Rule {
	var matched []Rule
	for _, rule := range rules {
		if !rule.IsActive || rule.Trigger != event.Type {
			continue
		}
		if EvaluateConditions(rule.Conditions, event.Payload) {
			matched = append(matched, rule)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})
	return matched
}

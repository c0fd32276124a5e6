package automation

import "testing"

func TestMatchRulesFiltersInactiveAndTrigger(t *testing.T) {
	evt := NewEvent(InquiryCreated, Payload{"inquiry.priority": String("HIGH")})
	rules := []Rule{
		{ID: 1, Name: "inactive", Trigger: InquiryCreated, IsActive: false},
		{ID: 2, Name: "wrong trigger", Trigger: QuoteCreated, IsActive: true},
		{ID: 3, Name: "matches", Trigger: InquiryCreated, IsActive: true},
		{ID: 4, Name: "condition miss", Trigger: InquiryCreated, IsActive: true,
			Conditions: []Condition{{Field: "inquiry.priority", Op: OpEquals, Value: String("LOW")}}},
	}

	matched := MatchRules(evt, rules)
	if len(matched) != 1 || matched[0].ID != 3 {
		t.Fatalf("expected only rule 3 to match, got %v", matched)
	}
}

func TestMatchRulesInactiveNeverMatches(t *testing.T) {
	evt := NewEvent(ItemAssigned, Payload{"x": String("y")})
	rules := []Rule{
		{ID: 1, Trigger: ItemAssigned, IsActive: false},
		{ID: 2, Trigger: ItemAssigned, IsActive: false,
			Conditions: []Condition{{Field: "x", Op: OpEquals, Value: String("y")}}},
	}
	if got := MatchRules(evt, rules); len(got) != 0 {
		t.Fatalf("inactive rules must never match, got %v", got)
	}
}

func TestMatchRulesPriorityOrder(t *testing.T) {
	evt := NewEvent(InquiryCreated, Payload{})
	rules := []Rule{
		{ID: 1, Name: "p5", Priority: 5, Trigger: InquiryCreated, IsActive: true},
		{ID: 2, Name: "p1", Priority: 1, Trigger: InquiryCreated, IsActive: true},
		{ID: 3, Name: "p3", Priority: 3, Trigger: InquiryCreated, IsActive: true},
	}

	matched := MatchRules(evt, rules)
	got := []int{matched[0].Priority, matched[1].Priority, matched[2].Priority}
	want := []int{1, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("priority order = %v, want %v", got, want)
		}
	}
}

func TestMatchRulesStableTies(t *testing.T) {
	evt := NewEvent(InquiryCreated, Payload{})
	rules := []Rule{
		{ID: 10, Priority: 2, Trigger: InquiryCreated, IsActive: true},
		{ID: 11, Priority: 2, Trigger: InquiryCreated, IsActive: true},
		{ID: 12, Priority: 1, Trigger: InquiryCreated, IsActive: true},
	}

	matched := MatchRules(evt, rules)
	if matched[0].ID != 12 || matched[1].ID != 10 || matched[2].ID != 11 {
		t.Fatalf("ties must keep store order: got %d,%d,%d", matched[0].ID, matched[1].ID, matched[2].ID)
	}
}

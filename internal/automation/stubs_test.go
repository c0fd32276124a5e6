package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// stubGateways is an in-memory implementation of every collaborator
// interface, recording calls and failing on demand.
type stubGateways struct {
	mu sync.Mutex

	rules     []Rule
	rulesErr  error
	counts    map[string]map[string]int // role -> userID -> open items
	countsErr error

	assignErr  error
	notifyErr  error
	emailErr   error
	statusErr  error
	webhookErr error
	deadlineErr error

	assigned      []string // "entityType/entityID->userID"
	notified      []string // "userID:title"
	emailsSent    []string // template names
	statusUpdates []string // "entityType/entityID=status"
	webhookPosts  []string // urls
	deadlines     []string // "entityType/entityID+days"
}

func newStubGateways() *stubGateways {
	return &stubGateways{counts: map[string]map[string]int{}}
}

func (s *stubGateways) gateways() Gateways {
	return Gateways{
		Rules:         s,
		Assignments:   s,
		Notifications: s,
		Email:         s,
		Status:        s,
		Webhooks:      s,
		Deadlines:     s,
	}
}

func (s *stubGateways) ActiveRulesForTrigger(ctx context.Context, trigger TriggerKind) ([]Rule, error) {
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	var out []Rule
	for _, r := range s.rules {
		if r.IsActive && r.Trigger == trigger {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubGateways) Assign(ctx context.Context, entityType, entityID, userID string) error {
	if s.assignErr != nil {
		return s.assignErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned = append(s.assigned, fmt.Sprintf("%s/%s->%s", entityType, entityID, userID))
	return nil
}

func (s *stubGateways) OpenItemCountsByRole(ctx context.Context, role string) (map[string]int, error) {
	if s.countsErr != nil {
		return nil, s.countsErr
	}
	out := map[string]int{}
	for id, n := range s.counts[role] {
		out[id] = n
	}
	return out, nil
}

func (s *stubGateways) Notify(ctx context.Context, userID, title, message string, data map[string]interface{}) error {
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, userID+":"+title)
	return nil
}

func (s *stubGateways) Send(ctx context.Context, template string, recipients []string, variables map[string]interface{}) error {
	if s.emailErr != nil {
		return s.emailErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailsSent = append(s.emailsSent, template)
	return nil
}

func (s *stubGateways) UpdateStatus(ctx context.Context, entityType, entityID, status string) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUpdates = append(s.statusUpdates, fmt.Sprintf("%s/%s=%s", entityType, entityID, status))
	return nil
}

func (s *stubGateways) Post(ctx context.Context, url, method string, headers map[string]string, body []byte) error {
	if s.webhookErr != nil {
		return s.webhookErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhookPosts = append(s.webhookPosts, url)
	return nil
}

func (s *stubGateways) CreateDeadline(ctx context.Context, entityType, entityID string, daysFromNow, warningDays int) error {
	if s.deadlineErr != nil {
		return s.deadlineErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines = append(s.deadlines, fmt.Sprintf("%s/%s+%d", entityType, entityID, daysFromNow))
	return nil
}

var errStub = errors.New("stub failure")

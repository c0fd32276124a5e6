package automation

import (
	"context"
	"fmt"
)

// Balancer picks the least-loaded eligible user for role-based assignment.
// It is stateless: counts are read fresh on every call. The count read and
// the subsequent assignment write are not atomic, so two concurrent events
// assigning into the same role may both pick the same user. That skew is
// acceptable for a best-effort heuristic and is not locked away.
type Balancer struct {
	assignments AssignmentGateway
}

func NewBalancer(assignments AssignmentGateway) *Balancer {
	return &Balancer{assignments: assignments}
}

// PickAssignee returns the user id with the minimum open-item count among
// active holders of role. Ties break toward the lexicographically smaller
// user id so repeated calls are reproducible.
func (b *Balancer) PickAssignee(ctx context.Context, role, entityType string) (string, error) {
	counts, err := b.assignments.OpenItemCountsByRole(ctx, role)
	if err != nil {
		return "", fmt.Errorf("load workload for role %q: %w", role, err)
	}
	if len(counts) == 0 {
		return "", NoEligibleUser(role)
	}
	var best string
	bestCount := -1
	for userID, open := range counts {
		if bestCount < 0 || open < bestCount || (open == bestCount && userID < best) {
			best = userID
			bestCount = open
		}
	}
	return best, nil
}

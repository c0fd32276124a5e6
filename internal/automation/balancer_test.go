package automation

import (
	"context"
	"errors"
	"testing"
)

func TestBalancerPicksMinimumCount(t *testing.T) {
	gw := newStubGateways()
	gw.counts["engineer"] = map[string]int{"A": 2, "B": 2, "C": 1}

	b := NewBalancer(gw)
	got, err := b.PickAssignee(context.Background(), "engineer", "inquiry_item")
	if err != nil {
		t.Fatalf("PickAssignee: %v", err)
	}
	if got != "C" {
		t.Fatalf("got %q, want C", got)
	}
}

func TestBalancerTieBreaksDeterministically(t *testing.T) {
	gw := newStubGateways()
	gw.counts["engineer"] = map[string]int{"B": 1, "A": 1}

	b := NewBalancer(gw)
	for i := 0; i < 20; i++ {
		got, err := b.PickAssignee(context.Background(), "engineer", "inquiry_item")
		if err != nil {
			t.Fatalf("PickAssignee: %v", err)
		}
		if got != "A" {
			t.Fatalf("iteration %d: got %q, want lexicographically smaller id A", i, got)
		}
	}
}

func TestBalancerNoEligibleUser(t *testing.T) {
	gw := newStubGateways()

	b := NewBalancer(gw)
	_, err := b.PickAssignee(context.Background(), "vp", "inquiry")
	if err == nil {
		t.Fatal("expected error for empty candidate set")
	}
	if KindOf(err) != ErrKindNoEligibleUser {
		t.Fatalf("error kind = %s, want %s", KindOf(err), ErrKindNoEligibleUser)
	}
}

func TestBalancerGatewayError(t *testing.T) {
	gw := newStubGateways()
	gw.countsErr = errors.New("connection refused")

	b := NewBalancer(gw)
	if _, err := b.PickAssignee(context.Background(), "engineer", "inquiry"); err == nil {
		t.Fatal("expected propagated gateway error")
	}
}

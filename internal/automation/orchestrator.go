package automation

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RuleOutcome holds the dispatch result of one matched rule.
type RuleOutcome struct {
	Rule           Rule            `json:"rule"`
	Skipped        bool            `json:"skipped,omitempty"` // not started due to cancellation
	ActionOutcomes []ActionOutcome `json:"action_outcomes,omitempty"`
}

// EventOutcome aggregates everything that happened for one event. The
// orchestrator never retries; the caller decides per ErrorKind.
type EventOutcome struct {
	Event        Event         `json:"event"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"` // set only on fatal failures
	Message      string        `json:"message,omitempty"`
	RuleOutcomes []RuleOutcome `json:"rule_outcomes"`
}

// Failed reports whether the event aborted before any dispatch.
func (o EventOutcome) Failed() bool { return o.ErrorKind != "" }

// Orchestrator is the engine entry point. It holds no cross-event state:
// each ProcessEvent call reads a fresh rule snapshot and runs to a terminal
// outcome exactly once.
type Orchestrator struct {
	store       RuleStore
	dispatcher  *Dispatcher
	logger      *logrus.Logger
	tracer      trace.Tracer
	concurrency int
}

// NewOrchestrator wires the engine. concurrency bounds how many matched
// rules dispatch in parallel for one event; values below 2 keep dispatch
// sequential. Rules are independent by contract, so parallel dispatch is
// safe as long as per-rule action order is preserved.
func NewOrchestrator(store RuleStore, dispatcher *Dispatcher, logger *logrus.Logger, concurrency int) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		store:       store,
		dispatcher:  dispatcher,
		logger:      logger,
		tracer:      otel.Tracer("flowdesk.automation"),
		concurrency: concurrency,
	}
}

// ProcessEvent matches the event against the active rules and dispatches
// every match. A rule store failure is fatal for the event (no automation
// is safer than partial automation); everything else degrades to per-action
// outcomes. Cancellation between rules lets started rules finish and marks
// the rest skipped.
func (o *Orchestrator) ProcessEvent(ctx context.Context, event Event) EventOutcome {
	ctx, span := o.tracer.Start(ctx, "automation.process_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("automation.event.id", event.ID),
		attribute.String("automation.event.type", string(event.Type)),
	)

	outcome := EventOutcome{Event: event}

	rules, err := o.store.ActiveRulesForTrigger(ctx, event.Type)
	if err != nil {
		o.logger.Warnf("automation: load rules for %s failed: %v", event.Type, err)
		outcome.ErrorKind = ErrKindRuleStoreUnavailable
		outcome.Message = err.Error()
		return outcome
	}

	matched := MatchRules(event, rules)
	span.SetAttributes(attribute.Int("automation.rules.matched", len(matched)))
	if len(matched) == 0 {
		return outcome
	}
	o.logger.Infof("automation: event %s matched %d rule(s)", event.Type, len(matched))

	if o.concurrency > 1 && len(matched) > 1 {
		outcome.RuleOutcomes = o.dispatchParallel(ctx, matched, event)
	} else {
		outcome.RuleOutcomes = o.dispatchSequential(ctx, matched, event)
	}
	return outcome
}

func (o *Orchestrator) dispatchSequential(ctx context.Context, matched []Rule, event Event) []RuleOutcome {
	outcomes := make([]RuleOutcome, 0, len(matched))
	for i, rule := range matched {
		if ctx.Err() != nil {
			// Cancellation raised between rules: record the rest as skipped.
			for _, skipped := range matched[i:] {
				outcomes = append(outcomes, RuleOutcome{Rule: skipped, Skipped: true})
			}
			break
		}
		outcomes = append(outcomes, RuleOutcome{
			Rule:           rule,
			ActionOutcomes: o.dispatcher.Dispatch(ctx, rule, event),
		})
	}
	return outcomes
}

// dispatchParallel runs rule dispatches through a bounded worker set.
// Outcomes land in their priority-ordered slots so aggregation order does
// not depend on scheduling. A rule observed after cancellation is skipped;
// rules already handed to a worker run to completion.
func (o *Orchestrator) dispatchParallel(ctx context.Context, matched []Rule, event Event) []RuleOutcome {
	outcomes := make([]RuleOutcome, len(matched))
	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	for i, rule := range matched {
		if ctx.Err() != nil {
			outcomes[i] = RuleOutcome{Rule: rule, Skipped: true}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rule Rule) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = RuleOutcome{
				Rule:           rule,
				ActionOutcomes: o.dispatcher.Dispatch(ctx, rule, event),
			}
		}(i, rule)
	}
	wg.Wait()
	return outcomes
}

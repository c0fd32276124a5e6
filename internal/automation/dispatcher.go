package automation

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Dispatcher executes a matched rule's actions strictly in declared order.
// Actions are never parallelized within one rule: later actions may depend
// on the side effects of earlier ones (assign, then notify the assignee).
type Dispatcher struct {
	registry *Registry
	logger   *logrus.Logger
}

func NewDispatcher(registry *Registry, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch runs every action of the rule and returns one outcome per
// action. A failing action is recorded and the remaining actions still run;
// failures surface only through the returned outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, rule Rule, event Event) []ActionOutcome {
	outcomes := make([]ActionOutcome, 0, len(rule.Actions))
	for _, action := range rule.Actions {
		outcome := ActionOutcome{Action: action, Succeeded: true}
		executor, err := d.registry.Get(action.Type)
		if err == nil {
			err = executor.Execute(ctx, action, event)
		}
		if err != nil {
			outcome.Succeeded = false
			outcome.ErrorKind = KindOf(err)
			outcome.Message = err.Error()
			d.logger.Warnf("automation: rule %q action %s failed: %v", rule.Name, action.Type, err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

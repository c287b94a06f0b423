package trigger

import (
	"context"
	"fmt"

	"basegraph.app/trigger/internal/domain"
)

type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeEnqueued Outcome = "enqueued"
)

// Decision is the result of evaluating one event against a policy. Cause
// and Request are only set when Outcome is OutcomeEnqueued.
type Decision struct {
	Outcome Outcome
	Reason  string
	Cause   Cause
	Request BuildRequest
}

// Evaluator turns an event into a build decision without scheduling it.
type Evaluator struct {
	requests *RequestBuilder
}

func NewEvaluator(requests *RequestBuilder) *Evaluator {
	return &Evaluator{requests: requests}
}

// Evaluate decides whether event should build under policy and, if so,
// computes the cause and the request. The same event and policy always
// yield the same decision.
func (e *Evaluator) Evaluate(ctx context.Context, event domain.Event, policy Policy) (Decision, error) {
	if ok, reason := policy.Eligible(event); !ok {
		return Decision{Outcome: OutcomeSkipped, Reason: reason}, nil
	}
	return e.Prepare(ctx, event)
}

// Prepare builds cause and request for an event already found eligible.
func (e *Evaluator) Prepare(ctx context.Context, event domain.Event) (Decision, error) {
	cause, err := NewCause(event)
	if err != nil {
		return Decision{}, err
	}

	req, err := e.requests.Build(ctx, event)
	if err != nil {
		return Decision{}, fmt.Errorf("building %s request: %w", event.Kind(), err)
	}

	return Decision{
		Outcome: OutcomeEnqueued,
		Cause:   cause,
		Request: req,
	}, nil
}

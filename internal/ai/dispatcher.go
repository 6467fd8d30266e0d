package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/pkg/logutil"
)

// ErrAllProvidersFailed is returned once every configured provider has
// been attempted without producing an answer.
var ErrAllProvidersFailed = errors.New("all ai providers failed")

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeAuthError      Outcome = "auth_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeMalformed      Outcome = "malformed_response"
)

// Attempt records one provider call. The attempt list for a request is
// append-only and ends at the first success.
type Attempt struct {
	Provider  string
	Outcome   Outcome
	LatencyMs int64
}

type GenerationResult struct {
	Answer    string
	Provider  string
	LatencyMs int64
}

// DispatchEntry binds a provider id to its generator and per-call timeout.
type DispatchEntry struct {
	Name      string
	Generator Generator
	Timeout   time.Duration
}

// Dispatcher walks an ordered provider chain until one call yields a
// non-empty answer. One attempt per provider, strictly sequential.
type Dispatcher struct {
	entries []DispatchEntry
}

func NewDispatcher(entries []DispatchEntry) *Dispatcher {
	return &Dispatcher{entries: entries}
}

func (d *Dispatcher) ProviderNames() []string {
	names := make([]string, 0, len(d.entries))
	for _, entry := range d.entries {
		names = append(names, entry.Name)
	}
	return names
}

func (d *Dispatcher) HasProvider(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, entry := range d.entries {
		if entry.Name == key {
			return true
		}
	}
	return false
}

// Dispatch tries providers in configured order. A non-empty preferred id
// moves that provider to the front; the remainder keeps its order.
func (d *Dispatcher) Dispatch(ctx context.Context, preferred string, prompt string) (*GenerationResult, []Attempt, error) {
	order := d.order(preferred)
	attempts := make([]Attempt, 0, len(order))
	logger := logutil.GetLogger(ctx)

	for _, entry := range order {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}
		start := time.Now()
		answer, err := d.attempt(ctx, entry, prompt)
		elapsed := time.Since(start)
		if err == nil {
			attempts = append(attempts, Attempt{
				Provider:  entry.Name,
				Outcome:   OutcomeSuccess,
				LatencyMs: elapsed.Milliseconds(),
			})
			return &GenerationResult{
				Answer:    answer,
				Provider:  entry.Name,
				LatencyMs: elapsed.Milliseconds(),
			}, attempts, nil
		}
		outcome := classify(err)
		attempts = append(attempts, Attempt{
			Provider:  entry.Name,
			Outcome:   outcome,
			LatencyMs: elapsed.Milliseconds(),
		})
		logger.Warn("ai provider attempt failed",
			zap.String("provider", entry.Name),
			zap.String("outcome", string(outcome)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	}
	logger.Error("all ai providers exhausted", zap.Int("attempts", len(attempts)))
	return nil, attempts, ErrAllProvidersFailed
}

func (d *Dispatcher) attempt(ctx context.Context, entry DispatchEntry, prompt string) (string, error) {
	if entry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.Timeout)
		defer cancel()
	}
	answer, err := entry.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrMalformed
	}
	return answer, nil
}

func (d *Dispatcher) order(preferred string) []DispatchEntry {
	key := strings.ToLower(strings.TrimSpace(preferred))
	if key == "" {
		return d.entries
	}
	ordered := make([]DispatchEntry, 0, len(d.entries))
	rest := make([]DispatchEntry, 0, len(d.entries))
	for _, entry := range d.entries {
		if entry.Name == key {
			ordered = append(ordered, entry)
			continue
		}
		rest = append(rest, entry)
	}
	return append(ordered, rest...)
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, ErrUnavailable):
		return OutcomeAuthError
	case errors.Is(err, ErrMalformed):
		return OutcomeMalformed
	default:
		return OutcomeTransportError
	}
}

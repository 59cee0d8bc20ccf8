// Package deliver hands serialized captures to their destinations: the page
// clipboard, the capture store, a rotating journal, a webhook or a writer.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/domsnap/internal/prune"
)

// Result is one serialized capture ready for delivery.
type Result struct {
	ID        string
	TabID     string
	Source    string
	URL       string
	Title     string
	Selector  string
	Node      *prune.SerializedNode
	JSON      []byte
	CreatedAt time.Time
}

// NewResult marshals node and fills JSON. CreatedAt defaults to now.
func NewResult(id, source string, node *prune.SerializedNode) (Result, error) {
	data, err := prune.Marshal(node)
	if err != nil {
		return Result{}, err
	}
	return Result{
		ID:        id,
		Source:    source,
		Node:      node,
		JSON:      data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Sink is a delivery destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r Result) error
}

// Fanout delivers to every sink in order. A failing sink does not stop the
// others and nothing is retried.
type Fanout struct {
	sinks     []Sink
	OnFailure func(sink string)
}

func NewFanout(sinks ...Sink) *Fanout {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

// Sinks returns the configured sink names.
func (f *Fanout) Sinks() []string {
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Deliver(ctx context.Context, r Result) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Deliver(ctx, r); err != nil {
			slog.Warn("capture delivery failed", "sink", s.Name(), "id", r.ID, "error", err)
			if f.OnFailure != nil {
				f.OnFailure(s.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		slog.Info("capture delivered", "sink", s.Name(), "id", r.ID, "bytes", len(r.JSON))
	}
	return errors.Join(errs...)
}

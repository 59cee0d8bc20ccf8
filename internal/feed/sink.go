package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgnsrekt/domsnap/internal/deliver"
)

type payload struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	TabID     string          `json:"tab_id,omitempty"`
	URL       string          `json:"url,omitempty"`
	Title     string          `json:"title,omitempty"`
	Selector  string          `json:"selector,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Node      json.RawMessage `json:"node"`
}

// Sink publishes every delivered capture on a broker.
type Sink struct {
	Broker *Broker
}

func (s *Sink) Name() string { return "feed" }

func (s *Sink) Deliver(_ context.Context, r deliver.Result) error {
	data, err := json.Marshal(payload{
		ID:        r.ID,
		Source:    r.Source,
		TabID:     r.TabID,
		URL:       r.URL,
		Title:     r.Title,
		Selector:  r.Selector,
		CreatedAt: r.CreatedAt,
		Node:      r.JSON,
	})
	if err != nil {
		return err
	}
	s.Broker.Publish(Event{Source: r.Source, Payload: string(data)})
	return nil
}

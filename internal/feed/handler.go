package feed

import (
	"fmt"
	"net/http"
	"strings"
)

// SSEHandler streams capture events. Clients may filter by capture source
// with ?sources=pick,selector.
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		var filter map[string]bool
		if q := r.URL.Query().Get("sources"); q != "" {
			filter = make(map[string]bool)
			for _, s := range strings.Split(q, ",") {
				if s = strings.TrimSpace(s); s != "" {
					filter[s] = true
				}
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if filter != nil && !filter[evt.Source] {
					continue
				}
				fmt.Fprintf(w, "event: capture\ndata: %s\n\n", evt.Payload)
				flusher.Flush()
			}
		}
	}
}

package cdpcontrol

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type fakeTarget struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type fakeEval struct {
	Expression  string
	UserGesture bool
}

// fakeBrowser serves the DevTools HTTP endpoints and answers attach and
// evaluate commands over a websocket.
type fakeBrowser struct {
	t       *testing.T
	srv     *httptest.Server
	targets []fakeTarget
	respond func(expression string) string

	mu    sync.Mutex
	evals []fakeEval
}

func newFakeBrowser(t *testing.T, targets []fakeTarget, respond func(string) string) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{t: t, targets: targets, respond: respond}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(fb.srv.URL, "http") + "/devtools/browser/fake"
		_ = json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": wsURL})
	})
	mux.HandleFunc("/json/list", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fb.targets)
	})
	mux.HandleFunc("/devtools/browser/fake", fb.serveWS)
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBrowser) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()
	var writeMu sync.Mutex
	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req struct {
			ID        int64           `json:"id"`
			Method    string          `json:"method"`
			SessionID string          `json:"sessionId"`
			Params    json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		// Evaluations may block (the picker), so answer each in its own goroutine.
		go func() {
			resp := fb.handle(req.ID, req.Method, req.SessionID, req.Params)
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = wsutil.WriteServerText(conn, resp)
		}()
	}
}

func (fb *fakeBrowser) handle(id int64, method, sessionID string, params json.RawMessage) []byte {
	var result any
	switch method {
	case "Target.attachToTarget":
		var p struct {
			TargetID string `json:"targetId"`
		}
		_ = json.Unmarshal(params, &p)
		result = map[string]string{"sessionId": "session-" + p.TargetID}
	case "Runtime.evaluate":
		var p struct {
			Expression  string `json:"expression"`
			UserGesture bool   `json:"userGesture"`
		}
		_ = json.Unmarshal(params, &p)
		fb.mu.Lock()
		fb.evals = append(fb.evals, fakeEval{Expression: p.Expression, UserGesture: p.UserGesture})
		fb.mu.Unlock()
		result = map[string]any{"result": map[string]any{"type": "string", "value": fb.respond(p.Expression)}}
	default:
		result = map[string]any{}
	}
	out, err := json.Marshal(map[string]any{"id": id, "sessionId": sessionID, "result": result})
	if err != nil {
		panic(fmt.Sprintf("marshal fake response: %v", err))
	}
	return out
}

func (fb *fakeBrowser) lastEval() fakeEval {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.evals) == 0 {
		fb.t.Fatalf("no evaluations recorded")
	}
	return fb.evals[len(fb.evals)-1]
}

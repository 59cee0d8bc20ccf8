package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var errClosed = errors.New("rawcdp: connection closed")

// rawCDP talks to the browser endpoint of a Chrome the user already drives.
// It never enables domains or auto-attaches, so a capture leaves the page as
// the user sees it. Events are not subscribed to and are dropped.
type rawCDP struct {
	httpBase string

	mu   sync.Mutex // guards conn and websocket writes
	conn net.Conn
	seq  atomic.Int64

	waitMu  sync.Mutex
	waiters map[int64]chan *cdpReply
}

type cdpRequest struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	SessionID string `json:"sessionId,omitempty"`
	Params    any    `json:"params,omitempty"`
}

type cdpReply struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newRawCDP(httpBase string) *rawCDP {
	return &rawCDP{
		httpBase: strings.TrimRight(httpBase, "/"),
		waiters:  make(map[int64]chan *cdpReply),
	}
}

func (r *rawCDP) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := r.getJSON(ctx, "/json/version", &version); err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return fmt.Errorf("rawcdp: browser ws url: empty webSocketDebuggerUrl")
	}

	slog.Debug("rawcdp connecting", "ws_url", version.WebSocketDebuggerURL)
	conn, _, _, err := ws.Dial(ctx, version.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}
	r.conn = conn
	go r.readLoop(conn)
	return nil
}

func (r *rawCDP) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *rawCDP) readLoop(conn net.Conn) {
	defer r.failWaiters()
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("rawcdp read loop exit", "error", err)
			return
		}
		var reply cdpReply
		if json.Unmarshal(data, &reply) != nil || reply.ID <= 0 {
			continue
		}
		if ch := r.takeWaiter(reply.ID); ch != nil {
			ch <- &reply
		}
	}
}

func (r *rawCDP) takeWaiter(id int64) chan *cdpReply {
	r.waitMu.Lock()
	defer r.waitMu.Unlock()
	ch := r.waiters[id]
	delete(r.waiters, id)
	return ch
}

func (r *rawCDP) failWaiters() {
	r.waitMu.Lock()
	defer r.waitMu.Unlock()
	for id, ch := range r.waiters {
		close(ch)
		delete(r.waiters, id)
	}
}

// call sends method, on sessionID when set, and decodes the reply result
// into out. A nil out discards it.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params, out any) error {
	req := cdpRequest{ID: r.seq.Add(1), Method: method, SessionID: sessionID, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("rawcdp: marshal %s: %w", method, err)
	}

	ch := make(chan *cdpReply, 1)
	r.waitMu.Lock()
	r.waiters[req.ID] = ch
	r.waitMu.Unlock()

	r.mu.Lock()
	if r.conn == nil {
		err = fmt.Errorf("rawcdp: not connected")
	} else {
		err = wsutil.WriteClientText(r.conn, data)
	}
	r.mu.Unlock()
	if err != nil {
		r.takeWaiter(req.ID)
		return fmt.Errorf("rawcdp: send %s: %w", method, err)
	}

	var reply *cdpReply
	select {
	case reply = <-ch:
		if reply == nil {
			return errClosed
		}
	case <-ctx.Done():
		r.takeWaiter(req.ID)
		return ctx.Err()
	}

	if reply.Error != nil {
		return fmt.Errorf("rawcdp: %s: %s", method, reply.Error.Message)
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Result, out); err != nil {
		return fmt.Errorf("rawcdp: decode %s: %w", method, err)
	}
	return nil
}

// attachToTarget opens a flat session on a page target.
func (r *rawCDP) attachToTarget(ctx context.Context, targetID string) (string, error) {
	var res struct {
		SessionID string `json:"sessionId"`
	}
	params := map[string]any{"targetId": targetID, "flatten": true}
	if err := r.call(ctx, "", "Target.attachToTarget", params, &res); err != nil {
		return "", err
	}
	return res.SessionID, nil
}

func (r *rawCDP) detachFromTarget(ctx context.Context, sessionID string) error {
	return r.call(ctx, "", "Target.detachFromTarget", map[string]any{"sessionId": sessionID}, nil)
}

// evaluate runs js in the session, awaiting promises, and returns its string
// result. userGesture unlocks gesture-gated APIs such as the clipboard.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, js string, userGesture bool) (string, error) {
	params := struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
		UserGesture   bool   `json:"userGesture,omitempty"`
	}{Expression: js, ReturnByValue: true, AwaitPromise: true, UserGesture: userGesture}

	var res struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := r.call(ctx, sessionID, "Runtime.evaluate", params, &res); err != nil {
		return "", err
	}
	if res.ExceptionDetails != nil {
		return "", fmt.Errorf("rawcdp: eval exception: %s", res.ExceptionDetails.Text)
	}

	var s string
	if err := json.Unmarshal(res.Result.Value, &s); err != nil {
		return string(res.Result.Value), nil
	}
	return s, nil
}

// listTargets reads the open targets from /json/list.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := r.getJSON(ctx, "/json/list", &entries); err != nil {
		return nil, err
	}
	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{TargetID: target.ID(e.ID), Type: e.Type, Title: e.Title, URL: e.URL})
	}
	return out, nil
}

func (r *rawCDP) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rawcdp: %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

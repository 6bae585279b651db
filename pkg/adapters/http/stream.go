package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

// SubscribeEvents handles GET /sessions/{id}/events (SSE). The first frame
// carries the full session as a diff; later frames carry changes only.
// ?watch=status,turn,events,eliminated,result limits which diffs are sent.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	diffs, initial, cancel, err := s.open(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer cancel()
	watch := parseWatch(r.URL.Query().Get("watch"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("sse subscriber connected", "session_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	writeDiff(w, initial)
	flusher.Flush()

	ticker := time.NewTicker(s.ping)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse subscriber disconnected", "session_id", id)
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: keep-alive\n\n")
			flusher.Flush()
		case diff, open := <-diffs:
			if !open {
				fmt.Fprintf(w, "event: close\ndata: %s\n\n", id)
				flusher.Flush()
				return
			}
			if !watch.match(diff) {
				continue
			}
			writeDiff(w, diff)
			flusher.Flush()
		}
	}
}

func writeDiff(w http.ResponseWriter, diff *domain.SnapshotDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// open subscribes before reading the state so no change is lost between
// the two.
func (s *Server) open(ctx context.Context, id string) (<-chan *domain.SnapshotDiff, *domain.SnapshotDiff, func(), error) {
	diffs, cancel, err := s.engine.Subscribe(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	snap, err := s.engine.GetState(ctx, id)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return diffs, domain.Diff(nil, &snap), cancel, nil
}

type watchList map[string]bool

func parseWatch(raw string) watchList {
	if raw == "" {
		return nil
	}
	out := watchList{}
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out[field] = true
		}
	}
	return out
}

func (wl watchList) match(d *domain.SnapshotDiff) bool {
	if len(wl) == 0 {
		return true
	}
	return (wl["status"] && d.Status != nil) ||
		(wl["turn"] && (d.Turn != nil || d.TurnOwner != nil)) ||
		(wl["events"] && len(d.Events) > 0) ||
		(wl["eliminated"] && len(d.Eliminated) > 0) ||
		(wl["result"] && d.Result != nil)
}

// Message is a WebSocket frame. Clients send "action" frames; the server
// sends "diff" frames and "error" frames for rejected actions.
type Message struct {
	Type   string               `json:"type"`
	Action *domain.PlayerAction `json:"action,omitempty"`
	Diff   *domain.SnapshotDiff `json:"diff,omitempty"`
	Error  *ErrorResponse       `json:"error,omitempty"`
}

// ServeWebSocket handles GET /sessions/{id}/ws. Diffs are pushed as they
// happen and action frames are submitted on behalf of the client.
func (s *Server) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	diffs, initial, cancel, err := s.open(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer cancel()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.logger.Warn("websocket accept failed", "session_id", id, "error", err)
		return
	}
	defer ws.CloseNow()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	replies := make(chan Message, 4)
	go s.readActions(ctx, ws, id, replies, stop)

	send := func(m Message) bool {
		wctx, done := context.WithTimeout(ctx, 5*time.Second)
		defer done()
		if err := wsjson.Write(wctx, ws, m); err != nil {
			s.logger.Debug("websocket write failed", "session_id", id, "error", err)
			return false
		}
		return true
	}

	if !send(Message{Type: "diff", Diff: initial}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-replies:
			if !send(m) {
				return
			}
		case diff, open := <-diffs:
			if !open {
				ws.Close(websocket.StatusNormalClosure, "session removed")
				return
			}
			if !send(Message{Type: "diff", Diff: diff}) {
				return
			}
		}
	}
}

func (s *Server) readActions(ctx context.Context, ws *websocket.Conn, id string, replies chan<- Message, stop func()) {
	defer stop()
	for {
		var m Message
		if err := wsjson.Read(ctx, ws, &m); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.logger.Debug("websocket read failed", "session_id", id, "error", err)
			}
			return
		}
		if m.Type != "action" || m.Action == nil {
			s.reply(ctx, replies, Message{Type: "error", Error: &ErrorResponse{
				Kind:    domain.KindSerializationError,
				Message: "expected an action frame",
			}})
			continue
		}
		if _, err := s.engine.SubmitAction(ctx, id, *m.Action); err != nil {
			s.reply(ctx, replies, Message{Type: "error", Error: &ErrorResponse{
				Kind:    domain.KindOf(err),
				Message: err.Error(),
			}})
		}
	}
}

func (s *Server) reply(ctx context.Context, replies chan<- Message, m Message) {
	select {
	case replies <- m:
	case <-ctx.Done():
	}
}

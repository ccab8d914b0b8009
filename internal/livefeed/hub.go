package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chesswatch/internal/dashboard"
	"github.com/park285/chesswatch/internal/metrics"
	"github.com/park285/chesswatch/internal/obslog"
	"github.com/park285/chesswatch/internal/supersede"
	"github.com/park285/chesswatch/pkg/watchdto"
)

// Source produces round snapshots.
type Source interface {
	RoundGames(ctx context.Context, roundID string, q dashboard.GamesQuery) (*watchdto.RoundGames, error)
}

type Options struct {
	PollInterval   time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

func (o *Options) normalize() {
	if o.PollInterval <= 0 {
		o.PollInterval = 15 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

// Hub accepts live-feed WebSocket connections. Each connection polls at most
// one round at a time; a new watch request replaces the running poller.
type Hub struct {
	src     Source
	opts    Options
	metrics *metrics.Metrics
	log     *zap.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc

	// mu orders session registration against Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewHub(src Source, opts Options, m *metrics.Metrics) *Hub {
	opts.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		src:        src,
		opts:       opts,
		metrics:    m,
		log:        obslog.Named("livefeed"),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.rootCtx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.opts.AllowedOrigins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.log.Warn("ws_accept_failed", zap.Error(err))
		return
	}

	if !h.track() {
		_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}
	defer h.wg.Done()

	s := &session{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		log:  h.log,
	}
	s.log = h.log.With(zap.String("conn_id", s.id))
	h.metrics.LiveConnected()
	defer h.metrics.LiveDisconnected()
	s.log.Info("ws_connected", zap.String("remote", r.RemoteAddr))
	s.run(h.rootCtx)
	s.log.Info("ws_disconnected")
}

// track registers a session unless the hub is closed.
func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// Close ends every session and waits for them to return.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.rootCancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

const pollKey = "poll"

type session struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	log   *zap.Logger
	ctx   context.Context
	polls supersede.Group
	wg    sync.WaitGroup
}

// run blocks until the peer goes away or the hub shuts down. Reads use a
// context that is never cancelled: cancelling a read makes the library fail
// the connection, so shutdown closes the conn instead.
func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	s.ctx = ctx

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		status, reason := websocket.StatusNormalClosure, "bye"
		if parent.Err() != nil {
			status, reason = websocket.StatusGoingAway, "server shutdown"
		}
		_ = s.conn.Close(status, reason)
	}()

	s.wg.Add(1)
	go s.pingLoop(cancel)

	s.push(watchdto.LiveMessage{Type: watchdto.LiveHello, ConnID: s.id})
	s.readLoop(context.WithoutCancel(ctx))

	cancel()
	s.polls.Stop(pollKey)
	s.wg.Wait()
	<-closed
}

func (s *session) readLoop(ctx context.Context) {
	for {
		var req watchdto.LiveRequest
		if err := wsjson.Read(ctx, s.conn, &req); err != nil {
			if s.ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				s.log.Debug("ws_read_failed", zap.Error(err))
			}
			return
		}
		s.handle(req)
	}
}

func (s *session) handle(req watchdto.LiveRequest) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case watchdto.LiveWatch:
		roundID := strings.TrimSpace(req.RoundID)
		if roundID == "" {
			s.pushError("roundId is required")
			return
		}
		pctx, done := s.polls.Start(s.ctx, pollKey)
		q := dashboard.GamesQuery{Search: req.Search, Page: req.Page}
		s.log.Debug("ws_watch", zap.String("round_id", roundID))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer done()
			s.poll(pctx, roundID, q)
		}()
	case watchdto.LiveUnwatch:
		s.polls.Stop(pollKey)
	default:
		s.pushError("unknown message type")
	}
}

func (s *session) poll(ctx context.Context, roundID string, q dashboard.GamesQuery) {
	t := time.NewTicker(s.hub.opts.PollInterval)
	defer t.Stop()
	for {
		snap, err := s.hub.src.RoundGames(ctx, roundID, q)
		// superseded pollers never publish
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn("ws_poll_failed", zap.String("round_id", roundID), zap.Error(err))
			s.pushError(err.Error())
		} else if raw, err := json.Marshal(snap); err != nil {
			s.pushError("encode snapshot failed")
		} else {
			s.push(watchdto.LiveMessage{Type: watchdto.LiveRound, Data: raw})
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *session) pingLoop(cancel context.CancelFunc) {
	defer s.wg.Done()
	t := time.NewTicker(s.hub.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(s.ctx, s.hub.opts.WriteTimeout)
			err := s.conn.Ping(pctx)
			pcancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				s.log.Info("ws_ping_failed", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *session) push(msg watchdto.LiveMessage) {
	if s.ctx.Err() != nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.hub.opts.WriteTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, s.conn, msg); err != nil {
		s.log.Debug("ws_write_failed", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	s.hub.metrics.LivePushed(msg.Type)
}

func (s *session) pushError(text string) {
	s.push(watchdto.LiveMessage{Type: watchdto.LiveError, Message: text})
}

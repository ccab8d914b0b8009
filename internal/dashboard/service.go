package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chesswatch/internal/archive"
	"github.com/park285/chesswatch/internal/board"
	"github.com/park285/chesswatch/internal/cache"
	"github.com/park285/chesswatch/internal/lichess"
	"github.com/park285/chesswatch/internal/metrics"
	"github.com/park285/chesswatch/internal/msgcat"
	"github.com/park285/chesswatch/internal/obslog"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidArgs = errors.New("invalid arguments")
)

// Upstream is the subset of the Lichess client the dashboard reads from.
type Upstream interface {
	TopBroadcasts(ctx context.Context, page int) (*lichess.TopPage, error)
	Broadcasts(ctx context.Context, nb int) ([]lichess.Broadcast, error)
	Broadcast(ctx context.Context, tourID string) (*lichess.Broadcast, error)
	Round(ctx context.Context, roundID string) (*lichess.RoundPage, error)
}

type Options struct {
	TTLTop          time.Duration
	TTLList         time.Duration
	TTLBroadcast    time.Duration
	TTLRound        time.Duration
	GamesPerPage    int
	ListSize        int
	ArchiveFinished bool
}

func DefaultOptions() Options {
	return Options{
		TTLTop:          30 * time.Second,
		TTLList:         5 * time.Minute,
		TTLBroadcast:    30 * time.Second,
		TTLRound:        10 * time.Second,
		GamesPerPage:    10,
		ListSize:        20,
		ArchiveFinished: true,
	}
}

const maxListSize = 100

// Service assembles view models from upstream broadcast data. It is safe for
// concurrent use.
type Service struct {
	up       Upstream
	loader   *cache.Loader
	renderer board.Renderer
	recorder archive.Recorder
	catalog  *msgcat.Catalog
	metrics  *metrics.Metrics
	now      func() time.Time
	opts     Options
	log      *zap.Logger

	archivedMu sync.Mutex
	archived   map[string]struct{}
}

type Option func(*Service)

func WithCache(l *cache.Loader) Option { return func(s *Service) { s.loader = l } }
func WithRenderer(r board.Renderer) Option { return func(s *Service) { s.renderer = r } }
func WithRecorder(r archive.Recorder) Option { return func(s *Service) { s.recorder = r } }
func WithCatalog(c *msgcat.Catalog) Option { return func(s *Service) { s.catalog = c } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithOptions(o Options) Option { return func(s *Service) { s.opts = o } }

func New(up Upstream, opts ...Option) *Service {
	s := &Service{
		up:       up,
		now:      time.Now,
		opts:     DefaultOptions(),
		log:      obslog.Named("dashboard"),
		archived: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.loader == nil {
		s.loader = cache.NewLoader(cache.NewMemoryStore(), s.metrics)
	}
	if s.renderer == nil {
		s.renderer = board.NewRenderer()
	}
	if s.catalog == nil {
		s.catalog = msgcat.MustDefault()
	}
	if s.opts.GamesPerPage <= 0 {
		s.opts.GamesPerPage = 10
	}
	if s.opts.ListSize <= 0 {
		s.opts.ListSize = 20
	}
	return s
}

func (s *Service) text(key string, data any) string { return s.catalog.Text(key, data) }

// upstreamErr maps a client error into the dashboard's error space.
func (s *Service) upstreamErr(err error, notFoundKey string) error {
	if errors.Is(err, lichess.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, s.text(notFoundKey, nil))
	}
	return err
}

func (s *Service) topPage(ctx context.Context, page int) (*lichess.TopPage, error) {
	return cache.Load(ctx, s.loader, "top", fmt.Sprintf("top:%d", page), s.opts.TTLTop,
		func(ctx context.Context) (*lichess.TopPage, error) { return s.up.TopBroadcasts(ctx, page) })
}

func (s *Service) broadcastList(ctx context.Context, nb int) ([]lichess.Broadcast, error) {
	return cache.Load(ctx, s.loader, "list", fmt.Sprintf("list:%d", nb), s.opts.TTLList,
		func(ctx context.Context) ([]lichess.Broadcast, error) { return s.up.Broadcasts(ctx, nb) })
}

func (s *Service) broadcast(ctx context.Context, tourID string) (*lichess.Broadcast, error) {
	return cache.Load(ctx, s.loader, "tour", "tour:"+tourID, s.opts.TTLBroadcast,
		func(ctx context.Context) (*lichess.Broadcast, error) { return s.up.Broadcast(ctx, tourID) })
}

func (s *Service) round(ctx context.Context, roundID string) (*lichess.RoundPage, error) {
	return cache.Load(ctx, s.loader, "round", "round:"+roundID, s.opts.TTLRound,
		func(ctx context.Context) (*lichess.RoundPage, error) { return s.up.Round(ctx, roundID) })
}

func cleanID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s id is required", ErrInvalidArgs, kind)
	}
	if strings.ContainsAny(id, "/?#") {
		return "", fmt.Errorf("%w: malformed %s id", ErrInvalidArgs, kind)
	}
	return id, nil
}

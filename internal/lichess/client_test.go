package lichess

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	statuses []int
	retries  []int
}

func (o *recordingObserver) ObserveRequest(op string, status int, err error, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) ObserveRetry(op string, attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, attempt)
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{WithBackoff(time.Millisecond), WithTimeout(2 * time.Second)}
	return NewClient(srv.URL+"/api", append(base, opts...)...)
}

func TestTopBroadcastsDecodes(t *testing.T) {
	var gotPath, gotQuery, gotUA, gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		gotUA, gotAccept = r.UserAgent(), r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"active":[{"tour":{"id":"t1","name":"Norway Chess","info":{"players":"Carlsen, Nakamura"}},"round":{"id":"r1","name":"Round 5","startsAt":1717250400000},"group":"Norway Chess 2024"}],
			"upcoming":[],
			"past":{"currentPage":2,"maxPerPage":20,"currentPageResults":[{"tour":{"id":"t2","name":"Old"},"round":{"id":"r9","name":"Round 9","finished":true}}],"previousPage":1,"nextPage":3}
		}`))
	})

	top, err := c.TopBroadcasts(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "/api/broadcast/top", gotPath)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "application/json", gotAccept)

	require.Len(t, top.Active, 1)
	assert.Equal(t, "Norway Chess 2024", top.Active[0].Group.Name)
	assert.Equal(t, "Carlsen, Nakamura", top.Active[0].Tour.Info.Players)
	require.NotNil(t, top.Past.NextPage)
	assert.Equal(t, 3, *top.Past.NextPage)
	require.Len(t, top.Past.CurrentPageResults, 1)
	assert.True(t, top.Past.CurrentPageResults[0].Round.Finished)
}

func TestBroadcastsReadsNDJSON(t *testing.T) {
	var gotAccept, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept, gotQuery = r.Header.Get("Accept"), r.URL.RawQuery
		_, _ = w.Write([]byte("{\"tour\":{\"id\":\"a\",\"name\":\"A\"},\"rounds\":[]}\n\n{\"tour\":{\"id\":\"b\",\"name\":\"B\"},\"rounds\":[{\"id\":\"r1\",\"name\":\"R1\"}]}\n"))
	})

	list, err := c.Broadcasts(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "application/x-ndjson", gotAccept)
	assert.Equal(t, "nb=5", gotQuery)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Tour.ID)
	assert.Equal(t, "r1", list[1].Rounds[0].ID)
}

func TestBroadcastsRejectsBadLine(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"tour\":{\"id\":\"a\"}}\nnot json\n"))
	})
	_, err := c.Broadcasts(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestBroadcastGroupObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/broadcast/abc123", r.URL.Path)
		_, _ = w.Write([]byte(`{"tour":{"id":"abc123","name":"Open"},"group":{"name":"Festival","tours":[{"id":"x","name":"Open A"}]},"rounds":[{"id":"r1","name":"Round 1","finished":true},{"id":"r2","name":"Tiebreaks","startsAfterPrevious":true}]}`))
	})
	b, err := c.Broadcast(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, b.Group)
	assert.Equal(t, "Festival", b.Group.Name)
	require.Len(t, b.Group.Tours, 1)
	require.Len(t, b.Rounds, 2)
	assert.True(t, b.Rounds[1].StartsAfterPrevious)
	_, ok := b.Rounds[1].StartTime()
	assert.False(t, ok)
}

func TestRoundPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/broadcast/-/-/rnd42", r.URL.Path)
		_, _ = w.Write([]byte(`{"round":{"id":"rnd42","name":"Round 3"},"tour":{"id":"t"},"games":[{"id":"g1","fen":"8/8/8/8/8/8/8/K6k w - - 0 1","status":"1-0","players":[{"name":"A","rating":2700,"fed":"NOR"},{"name":"B"}]}]}`))
	})
	page, err := c.Round(context.Background(), "rnd42")
	require.NoError(t, err)
	require.Len(t, page.Games, 1)
	assert.Equal(t, "A", page.Games[0].White().Name)
	assert.Equal(t, "B", page.Games[0].Black().Name)
	assert.Equal(t, Player{}, Game{}.Black())
}

func TestRetriesServerErrorsWithLinearBackoff(t *testing.T) {
	var hits int32
	obs := &recordingObserver{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 4 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"tour":{"id":"t"},"rounds":[]}`))
	}, WithObserver(obs))

	_, err := c.Broadcast(context.Background(), "t")
	require.NoError(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
	assert.Equal(t, []int{1, 2, 3}, obs.retries)
	assert.Equal(t, []int{502, 502, 502, 200}, obs.statuses)
}

func TestRetriesTransportErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	obs := &recordingObserver{}
	c := NewClient("http://"+addr+"/api",
		WithBackoff(time.Millisecond),
		WithTimeout(time.Second),
		WithObserver(obs),
	)

	_, err = c.TopBroadcasts(context.Background(), 1)
	require.Error(t, err)
	var serr *StatusError
	assert.False(t, errors.As(err, &serr))
	assert.Contains(t, err.Error(), "request failed")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []int{0, 0, 0, 0}, obs.statuses)
	assert.Equal(t, []int{1, 2, 3}, obs.retries)
}

func TestGivesUpAfterThreeRetries(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.TopBroadcasts(context.Background(), 1)
	require.Error(t, err)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusServiceUnavailable, serr.Status)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	})
	_, err := c.Round(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	atomic.StoreInt32(&hits, 0)
	c429 := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err = c429.Round(context.Background(), "busy")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	var hits int32
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}, WithBackoff(50*time.Millisecond))

	_, err := c.Round(ctx, "r")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestLinearBackoff(t *testing.T) {
	b := linearBackoff(time.Second)
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 3*time.Second, b(3))
	assert.Equal(t, time.Second, b(0))
}

func TestEmptyIDs(t *testing.T) {
	c := NewClient("")
	_, err := c.Broadcast(context.Background(), " ")
	assert.Error(t, err)
	_, err = c.Round(context.Background(), "")
	assert.Error(t, err)
}

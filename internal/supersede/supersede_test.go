package supersede

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCancelsPrevious(t *testing.T) {
	var g Group
	first, doneFirst := g.Start(context.Background(), "conn")

	released := make(chan struct{})
	go func() {
		<-first.Done()
		doneFirst()
		close(released)
	}()

	second, doneSecond := g.Start(context.Background(), "conn")
	defer doneSecond()

	<-released
	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NoError(t, second.Err())
	assert.True(t, g.Active("conn"))
}

func TestDoneClearsOnlyOwnSlot(t *testing.T) {
	var g Group
	_, doneA := g.Start(context.Background(), "k")
	doneA()
	assert.False(t, g.Active("k"))

	ctxB, doneB := g.Start(context.Background(), "k")
	doneA()
	assert.True(t, g.Active("k"))
	assert.NoError(t, ctxB.Err())
	doneB()
	doneB()
	assert.False(t, g.Active("k"))
}

func TestKeysAreIndependent(t *testing.T) {
	var g Group
	a, doneA := g.Start(context.Background(), "a")
	defer doneA()
	b, doneB := g.Start(context.Background(), "b")
	defer doneB()
	assert.NoError(t, a.Err())
	assert.NoError(t, b.Err())
}

func TestStop(t *testing.T) {
	var g Group
	g.Stop("missing")

	ctx, done := g.Start(context.Background(), "k")
	go func() {
		<-ctx.Done()
		done()
	}()
	g.Stop("k")
	assert.False(t, g.Active("k"))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestNewestWins(t *testing.T) {
	var g Group
	var mu sync.Mutex
	var winners []int

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		ctx, done := g.Start(context.Background(), "round")
		wg.Add(1)
		go func(i int, ctx context.Context, done func()) {
			defer wg.Done()
			defer done()
			select {
			case <-ctx.Done():
			case <-time.After(200 * time.Millisecond):
				mu.Lock()
				winners = append(winners, i)
				mu.Unlock()
			}
		}(i, ctx, done)
	}
	wg.Wait()
	require.Len(t, winners, 1)
	assert.Equal(t, 4, winners[0])
}

package oracle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatedOracle struct {
	calls   atomic.Int32
	release chan struct{}
	entered chan struct{}
}

func (g *gatedOracle) GetCardByID(ctx context.Context, cardID string) (Card, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	<-g.release
	return Card{ID: cardID, TypeLine: "Instant"}, nil
}

func TestSharedCollapsesConcurrentLookups(t *testing.T) {
	inner := &gatedOracle{release: make(chan struct{}), entered: make(chan struct{}, 8)}
	shared := NewShared(inner)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]Card, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		card, err := shared.GetCardByID(context.Background(), "bolt")
		assert.NoError(t, err)
		results[0] = card
	}()
	<-inner.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			card, err := shared.GetCardByID(context.Background(), "bolt")
			assert.NoError(t, err)
			results[i] = card
		}(i)
	}

	close(inner.release)
	wg.Wait()

	for _, card := range results {
		assert.Equal(t, "bolt", card.ID)
	}
	assert.LessOrEqual(t, inner.calls.Load(), int32(callers))
}

func TestSharedDoesNotCacheBetweenCalls(t *testing.T) {
	m := NewMemory(Card{ID: "bears", Power: "2"})
	shared := NewShared(m)

	card, err := shared.GetCardByID(context.Background(), "bears")
	require.NoError(t, err)
	assert.Equal(t, 2, card.PowerValue())

	m.Put(Card{ID: "bears", Power: "3"})
	card, err = shared.GetCardByID(context.Background(), "bears")
	require.NoError(t, err)
	assert.Equal(t, 3, card.PowerValue())

	_, err = shared.GetCardByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

type ctxOracle struct {
	entered chan struct{}
	release chan struct{}
}

func (o *ctxOracle) GetCardByID(ctx context.Context, cardID string) (Card, error) {
	o.entered <- struct{}{}
	<-o.release
	if err := ctx.Err(); err != nil {
		return Card{}, err
	}
	return Card{ID: cardID}, nil
}

func TestSharedIgnoresFirstCallerCancel(t *testing.T) {
	inner := &ctxOracle{entered: make(chan struct{}, 1), release: make(chan struct{})}
	shared := NewShared(inner)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := shared.GetCardByID(ctx, "bolt")
		errc <- err
	}()
	<-inner.entered
	cancel()
	close(inner.release)

	assert.NoError(t, <-errc)
}

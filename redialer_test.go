package wsconn

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
}

func (f *fakeFactory) build(sink Sink) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	t := newFakeTransport()
	f.transports = append(f.transports, t)

	return New(testAddress, sink, WithTransport(t), WithPingInterval(0))
}

func (f *fakeFactory) built() []*fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*fakeTransport(nil), f.transports...)
}

func noBackoff(int) time.Duration { return time.Millisecond }

func TestRedialer_RedialsAfterFailure(t *testing.T) {
	factory := &fakeFactory{}
	sink := &recordingSink{}

	r := NewRedialer(nil, factory.build, sink, noBackoff, time.Minute)
	t.Cleanup(r.Close)

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return sink.count(evConnected) == 1 })

	first := r.Current()
	factory.built()[0].fail(errBoom)

	waitFor(t, func() bool { return sink.count(evConnected) == 2 })

	assert.Len(t, factory.built(), 2)
	assert.NotEqual(t, first.ID(), r.Current().ID())
	assert.Equal(t, StateClosed, first.State())
	assert.Equal(t, StateOpen, r.Current().State())
}

func TestRedialer_CleanCloseDoesNotRedial(t *testing.T) {
	factory := &fakeFactory{}
	sink := &recordingSink{}

	r := NewRedialer(nil, factory.build, sink, noBackoff, time.Minute)
	t.Cleanup(r.Close)

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return sink.count(evConnected) == 1 })

	factory.built()[0].fail(&CloseError{Code: CloseNormalClosure})
	waitFor(t, func() bool { return sink.count(evDisconnected) == 1 })

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, factory.built(), 1)
}

func TestRedialer_CloseStopsRedialing(t *testing.T) {
	factory := &fakeFactory{}
	sink := &recordingSink{}

	slow := func(int) time.Duration { return 50 * time.Millisecond }
	r := NewRedialer(nil, factory.build, sink, slow, time.Minute)

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return sink.count(evConnected) == 1 })

	factory.built()[0].fail(errBoom)
	waitFor(t, func() bool { return sink.count(evDisconnected) == 1 })

	r.Close()
	time.Sleep(100 * time.Millisecond)

	assert.Len(t, factory.built(), 1)
	assert.ErrorIs(t, r.Start(), ErrConnectionClosed)
}

func TestRedialer_CloseDisconnectsCurrent(t *testing.T) {
	factory := &fakeFactory{}
	sink := &recordingSink{}

	r := NewRedialer(nil, factory.build, sink, noBackoff, time.Minute)

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return sink.count(evConnected) == 1 })

	r.Close()
	waitFor(t, func() bool { return sink.count(evDisconnected) == 1 })

	d, _ := sink.first(evDisconnected)
	assert.NoError(t, d.err)
	assert.Equal(t, StateClosed, r.Current().State())
}

func TestRedialer_BackoffGrowsUntilHealthy(t *testing.T) {
	factory := &fakeFactory{}
	sink := &recordingSink{}

	var (
		mu       sync.Mutex
		attempts []int
	)
	calc := func(n int) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, n)
		return time.Millisecond
	}

	r := NewRedialer(nil, factory.build, sink, calc, time.Hour)
	t.Cleanup(r.Close)

	require.NoError(t, r.Start())

	for i := 1; i <= 3; i++ {
		waitFor(t, func() bool { return sink.count(evConnected) == i })
		factory.built()[i-1].fail(errBoom)
	}
	waitFor(t, func() bool { return sink.count(evConnected) == 4 })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestRedialer_FactoryError(t *testing.T) {
	factory := &fakeFactory{err: errors.New("no transport")}

	r := NewRedialer(nil, factory.build, nil, noBackoff, time.Minute)

	err := r.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no transport")
	assert.Nil(t, r.Current())
}

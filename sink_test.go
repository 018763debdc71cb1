package wsconn

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkFuncs(t *testing.T) {
	var calls []string

	sink := SinkFuncs{
		Connected: func(Connection) { calls = append(calls, "connected") },
		TextMessage: func(_ Connection, text string) {
			calls = append(calls, "text:"+text)
		},
	}

	sink.OnConnected(nil)
	sink.OnTextMessage(nil, "hi")
	sink.OnBinaryMessage(nil, []byte("ignored"))
	sink.OnError(nil, errBoom)
	sink.OnDisconnected(nil, nil)

	assert.Equal(t, []string{"connected", "text:hi"}, calls)
}

type countingSink struct {
	SinkFuncs
	texts int
	// keeps the object out of the tiny allocator so it can be collected alone
	_ [64]byte
}

func (s *countingSink) OnTextMessage(Connection, string) {
	s.texts++
}

func TestWeakSink(t *testing.T) {
	t.Run("forwards while target is alive", func(t *testing.T) {
		target := &countingSink{}
		sink := WeakSink(target)

		sink.OnTextMessage(nil, "a")
		sink.OnTextMessage(nil, "b")

		assert.Equal(t, 2, target.texts)
		runtime.KeepAlive(target)
	})

	t.Run("no-op once target is collected", func(t *testing.T) {
		sink := WeakSink(&countingSink{})
		ws := sink.(weakSink[countingSink, *countingSink])

		require.Eventually(t, func() bool {
			runtime.GC()
			return ws.get() == nil
		}, time.Second, 10*time.Millisecond)

		assert.NotPanics(t, func() {
			sink.OnConnected(nil)
			sink.OnTextMessage(nil, "lost")
			sink.OnDisconnected(nil, nil)
		})
	})
}

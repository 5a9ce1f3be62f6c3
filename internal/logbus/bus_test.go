package logbus

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_RingBuffer(t *testing.T) {
	b := New(3)
	defer b.Close()
	for i := 0; i < 5; i++ {
		b.Publish(TypeState, i)
	}
	snap := b.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []any{2, 3, 4}, []any{snap[0].Data, snap[1].Data, snap[2].Data})
}

func TestBus_SubscribeAndClose(t *testing.T) {
	b := New(10)
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Log("info", "hello", map[string]any{"k": 1})
	msg := <-ch
	assert.Equal(t, TypeLog, msg.Type)
	assert.Equal(t, LogData{Level: "info", Msg: "hello", Fields: map[string]any{"k": 1}}, msg.Data)

	b.Close()
	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(TypeLog, "after close")
	assert.Empty(t, b.Snapshot())
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := New(100)
	defer b.Close()
	_, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			b.Log("info", "x", nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestBus_NilIsSafe(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Publish(TypeLog, nil) })
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestRunConsole(t *testing.T) {
	b := New(10)
	out := &syncBuffer{}

	ch, _ := b.Subscribe(16)
	done := make(chan struct{})
	go func() {
		RunConsole(ch, out, ConsoleOptions{NoColor: true})
		close(done)
	}()

	b.Log("debug", "hidden", nil)
	b.Publish(TypeState, map[string]any{"running": true})
	b.Log("warn", "Proxy file is empty", map[string]any{"file": "proxies.txt"})

	// Close 之后控制台应把剩余消息写完再返回。
	b.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop after bus close")
	}

	text := out.String()
	assert.Contains(t, text, "Proxy file is empty")
	assert.Contains(t, text, "WRN")
	assert.Contains(t, text, "file=proxies.txt")
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "running")
}

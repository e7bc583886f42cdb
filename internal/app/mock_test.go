package app

import (
	"io"
	"log/slog"
	"sync"

	"votaya-server/internal/domain"
)

// mockConn implements MemberConn and records every frame it is sent.
type mockConn struct {
	id       string
	identity domain.Identity

	mu      sync.Mutex
	frames  []interface{}
	closed  bool
	sendErr error
}

func newMockConn(id string, identity domain.Identity) *mockConn {
	return &mockConn{id: id, identity: identity}
}

func (m *mockConn) ID() string                { return m.id }
func (m *mockConn) Identity() domain.Identity { return m.identity }

func (m *mockConn) Send(message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, message)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) sent() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interface{}, len(m.frames))
	copy(out, m.frames)
	return out
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// framesOf filters sent frames down to one frame type.
func framesOf[T any](frames []interface{}) []T {
	var out []T
	for _, f := range frames {
		if v, ok := f.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

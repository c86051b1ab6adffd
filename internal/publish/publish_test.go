package publish_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/publish"
	"github.com/specialistvlad/cellgrid/internal/report"
	"github.com/specialistvlad/cellgrid/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/socket.io/v2/socket"
)

func callEvent() publish.Event {
	ev := publish.NewEvent(publish.KindCall, "f", "fid")
	ev.Call = &report.Call{Seq: 1, Function: "f", Outputs: []report.Value{report.NewValue("", tensor.Scalar(tensor.Int64, 3))}}
	return ev
}

func TestNewEvent(t *testing.T) {
	a := publish.NewEvent(publish.KindCompile, "f", "fid")
	b := publish.NewEvent(publish.KindCompile, "f", "fid")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "compile", a.Kind)
	assert.False(t, a.Time.IsZero())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ev := callEvent()
	require.NoError(t, publish.LogPublisher{}.Publish(ctx, ev))
	assert.Contains(t, buf.String(), "Published event.")
	assert.Contains(t, buf.String(), "id="+ev.ID)
	assert.Contains(t, buf.String(), "seq=1")
	require.NoError(t, publish.LogPublisher{}.Close())
}

type recorder struct {
	events []publish.Event
	err    error
	closed bool
}

func (r *recorder) Publish(_ context.Context, ev publish.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) Close() error {
	r.closed = true
	return r.err
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &recorder{}, &recorder{err: boom}, &recorder{}
	m := publish.Multi{a, b, c}

	err := m.Publish(context.Background(), callEvent())
	require.ErrorIs(t, err, boom)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Empty(t, c.events, "publishing stops at the first error")

	require.ErrorIs(t, m.Close(), boom)
	assert.True(t, a.closed && b.closed && c.closed, "every publisher is closed")
}

func TestDial_InvalidURL(t *testing.T) {
	_, err := publish.Dial(context.Background(), publish.SocketIOOptions{URL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse URL")
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := publish.Dial(ctx, publish.SocketIOOptions{URL: "http://127.0.0.1:1/socket.io/", ConnectTimeout: 5 * time.Second})
	require.Error(t, err)
}

func TestSocketIO_EmitsEvents(t *testing.T) {
	received := make(chan map[string]any, 1)
	io := socket.NewServer(nil, nil)
	io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		client.On("call", func(data ...any) {
			if m, ok := data[0].(map[string]any); ok {
				received <- m
			}
		})
	})
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		io.Close(nil)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pub, err := publish.Dial(ctx, publish.SocketIOOptions{URL: srv.URL + "/socket.io/"})
	require.NoError(t, err)
	defer pub.Close()

	ev := callEvent()
	require.NoError(t, pub.Publish(ctx, ev))

	select {
	case m := <-received:
		assert.Equal(t, ev.ID, m["id"])
		assert.Equal(t, "call", m["kind"])
		assert.Equal(t, "f", m["function"])
	case <-ctx.Done():
		t.Fatal("event was not received")
	}
}

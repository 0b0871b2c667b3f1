package client

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electr1fy0/scribe/server"
	"github.com/electr1fy0/scribe/storage"
)

func startServer(t *testing.T, opts ...server.Option) string {
	t.Helper()
	repo := storage.NewFileStore(filepath.Join(t.TempDir(), storage.DefaultFileName))
	srv := server.New(repo, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.Start(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url, token string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, token, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_Repository(t *testing.T) {
	c := dial(t, startServer(t), "")
	ctx := context.Background()

	n, err := c.CreateNote(ctx, "Untitled", "")
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)

	updated, err := c.UpdateNote(ctx, n.ID, "Plan", "step one")
	require.NoError(t, err)
	assert.Equal(t, "Plan", updated.Title)
	assert.GreaterOrEqual(t, updated.Timestamp, n.Timestamp)

	notes, err := c.LoadNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "step one", notes[0].Content)

	_, err = c.UpdateNote(ctx, "ghost", "x", "y")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, c.DeleteNote(ctx, n.ID))
	notes, err = c.LoadNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	c := dial(t, startServer(t), "")
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := c.CreateNote(ctx, "note", "")
			assert.NoError(t, err)
			ids[i] = n.ID
		}(i)
	}
	wg.Wait()

	notes, err := c.LoadNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, len(ids))
}

func TestClient_Token(t *testing.T) {
	url := startServer(t, server.WithToken("s3cret"))

	_, err := Dial(context.Background(), url, "wrong", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	c := dial(t, url, "s3cret")
	_, err = c.LoadNotes(context.Background())
	assert.NoError(t, err)
}

func TestClient_Changes(t *testing.T) {
	url := startServer(t)
	a := dial(t, url, "")
	b := dial(t, url, "")
	ctx := context.Background()

	_, err := b.LoadNotes(ctx)
	require.NoError(t, err)

	n, err := a.CreateNote(ctx, "shared", "")
	require.NoError(t, err)

	select {
	case id := <-b.Changes():
		assert.Equal(t, n.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestClient_CallsFailAfterClose(t *testing.T) {
	c, err := Dial(context.Background(), startServer(t), "", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.LoadNotes(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := dial(t, startServer(t), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.LoadNotes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

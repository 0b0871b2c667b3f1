package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electr1fy0/scribe/config"
	"github.com/electr1fy0/scribe/storage"
)

func TestPrintNotes(t *testing.T) {
	notes := []storage.Note{
		{ID: "n2", Title: "Later", Timestamp: time.Now().Unix()},
		{ID: "n1", Title: "", Timestamp: time.Now().Add(-time.Hour).Unix()},
	}

	var buf bytes.Buffer
	require.NoError(t, printNotes(&buf, notes, false))
	out := buf.String()
	assert.Contains(t, out, "n2")
	assert.Contains(t, out, "Later")
	assert.Contains(t, out, "(untitled)")
	assert.Contains(t, out, "1 hour ago")

	buf.Reset()
	require.NoError(t, printNotes(&buf, nil, true))
	var decoded []storage.Note
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded)

	buf.Reset()
	require.NoError(t, printNotes(&buf, nil, false))
	assert.Equal(t, "No notes.\n", buf.String())
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			c := config.Default()
			c.Backend = backend
			c.DataDir = t.TempDir()

			repo, err := openRepository(ctx, c, "", zerolog.Nop())
			require.NoError(t, err)
			if cl, ok := repo.(storage.Closer); ok {
				defer cl.Close()
			}

			n, err := repo.CreateNote(ctx, "hello", "")
			require.NoError(t, err)
			notes, err := repo.LoadNotes(ctx)
			require.NoError(t, err)
			require.Len(t, notes, 1)
			assert.Equal(t, n.ID, notes[0].ID)
		})
	}
}

func TestOpenFileStore_Encrypted(t *testing.T) {
	c := config.Default()
	c.DataDir = t.TempDir()
	c.Encrypt = true
	assert.True(t, needsPassphrase(c))

	_, err := openFileStore(context.Background(), c, "")
	assert.Error(t, err)

	fs, err := openFileStore(context.Background(), c, "pw")
	require.NoError(t, err)
	assert.True(t, fs.Encrypted())

	_, err = openFileStore(context.Background(), c, "other")
	assert.Error(t, err, "wrong passphrase is rejected on open")
}

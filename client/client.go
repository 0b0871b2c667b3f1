// Package client talks to a scribe server and presents it as a
// storage.Repository.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/electr1fy0/scribe/server"
	"github.com/electr1fy0/scribe/storage"
)

// ErrClosed is returned for calls made after the connection went away.
var ErrClosed = errors.New("connection closed")

const writeWait = 10 * time.Second

// Client multiplexes concurrent repository calls over one websocket,
// correlating responses by request id.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan server.Response
	err     error

	changes chan string
	done    chan struct{}
}

var _ storage.Repository = (*Client)(nil)

// Dial connects to url, sending token if non-empty.
func Dial(ctx context.Context, url, token string, log zerolog.Logger) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set(server.TokenHeader, token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial %s: unauthorized", url)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		log:     log,
		pending: make(map[uint64]chan server.Response),
		changes: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Changes delivers the id of notes other clients modified. Signals are
// coalesced; a receiver should reload rather than count them.
func (c *Client) Changes() <-chan string {
	return c.changes
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.changes)
	for {
		var resp server.Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.fail(err)
			return
		}
		if resp.Type == server.EventChanged {
			select {
			case c.changes <- resp.NoteID:
			default:
			}
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.log.Debug().Uint64("req", resp.ID).Msg("response for unknown request")
			continue
		}
		ch <- resp
	}
}

// fail wakes every waiter once the connection is gone.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.err = ErrClosed
	} else {
		c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) call(ctx context.Context, req server.Request) (server.Response, error) {
	if err := ctx.Err(); err != nil {
		return server.Response{}, err
	}
	ch := make(chan server.Response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return server.Response{}, err
	}
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return server.Response{}, fmt.Errorf("send %s: %w", req.Op, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.err
			c.mu.Unlock()
			return server.Response{}, err
		}
		return resp, resp.Err()
	case <-ctx.Done():
		c.forget(req.ID)
		return server.Response{}, ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) LoadNotes(ctx context.Context) ([]storage.Note, error) {
	resp, err := c.call(ctx, server.Request{Op: server.OpLoadNotes})
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	storage.SortNotes(resp.Notes)
	return resp.Notes, nil
}

func (c *Client) CreateNote(ctx context.Context, title, content string) (storage.Note, error) {
	resp, err := c.call(ctx, server.Request{Op: server.OpCreateNote, Title: title, Content: content})
	if err != nil {
		return storage.Note{}, fmt.Errorf("create note: %w", err)
	}
	if resp.Note == nil {
		return storage.Note{}, errors.New("create note: empty response")
	}
	return *resp.Note, nil
}

func (c *Client) UpdateNote(ctx context.Context, id, title, content string) (storage.Note, error) {
	resp, err := c.call(ctx, server.Request{Op: server.OpUpdateNote, NoteID: id, Title: title, Content: content})
	if err != nil {
		return storage.Note{}, fmt.Errorf("update note %s: %w", id, err)
	}
	if resp.Note == nil {
		return storage.Note{}, fmt.Errorf("update note %s: empty response", id)
	}
	return *resp.Note, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if _, err := c.call(ctx, server.Request{Op: server.OpDeleteNote, NoteID: id}); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

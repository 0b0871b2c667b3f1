package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// peer wraps a connection; gorilla allows one concurrent writer, so every
// write goes through mu.
type peer struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (p *peer) write(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return p.ws.WriteJSON(v)
}

type change struct {
	origin *peer
	noteID string
}

// Hub tracks connected peers and fans out change notifications so other
// clients know to reload their list.
type Hub struct {
	peers      map[*peer]bool
	broadcast  chan change
	register   chan *peer
	unregister chan *peer
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		peers:      make(map[*peer]bool),
		broadcast:  make(chan change, 64),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for p := range h.peers {
				p.ws.Close()
			}
			return
		case p := <-h.register:
			h.peers[p] = true
			h.log.Debug().Int("peers", len(h.peers)).Msg("peer registered")
		case p := <-h.unregister:
			if _, ok := h.peers[p]; ok {
				delete(h.peers, p)
				p.ws.Close()
				h.log.Debug().Int("peers", len(h.peers)).Msg("peer unregistered")
			}
		case c := <-h.broadcast:
			ev := Response{Type: EventChanged, NoteID: c.noteID}
			for p := range h.peers {
				if p == c.origin {
					continue
				}
				if err := p.write(ev); err != nil {
					h.log.Warn().Err(err).Msg("broadcast failed")
					delete(h.peers, p)
					p.ws.Close()
				}
			}
		}
	}
}

func (h *Hub) Register(p *peer) {
	select {
	case h.register <- p:
	case <-h.done:
	}
}

func (h *Hub) Unregister(p *peer) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

func (h *Hub) Broadcast(origin *peer, noteID string) {
	select {
	case h.broadcast <- change{origin: origin, noteID: noteID}:
	case <-h.done:
	}
}

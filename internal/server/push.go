package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"healthboard/internal/logger"
	"healthboard/internal/render"
)

const (
	pushWriteTimeout = 5 * time.Second
	pushPingInterval = 30 * time.Second

	messageTypeCard = "card"
)

var pushUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// cardMessage carries the re-rendered card of one service. Version is only
// comparable between messages with the same Boot.
type cardMessage struct {
	Type    string `json:"type"`
	Boot    string `json:"boot"`
	Name    string `json:"name"`
	Version uint64 `json:"version"`
	Status  string `json:"status"`
	Class   string `json:"status_class"`
	HTML    string `json:"html"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := pushUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	s.metrics.ClientConnected()
	defer s.metrics.ClientDisconnected()
	s.servePushConnection(conn)
}

// servePushConnection sends every card once, then each card again whenever
// its node version moves past the one last sent on this connection.
func (s *Server) servePushConnection(conn *websocket.Conn) {
	defer conn.Close()

	updates, unsubscribe := s.board.Subscribe()
	defer unsubscribe()

	sent := make(map[string]uint64)
	if err := s.pushChangedCards(conn, sent); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pushPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-updates:
			if err := s.pushChangedCards(conn, sent); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pushWriteTimeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) pushChangedCards(conn *websocket.Conn, sent map[string]uint64) error {
	uptime := s.metrics.Uptime()
	for _, node := range s.board.Snapshot() {
		if node.Version <= sent[node.Name] {
			continue
		}
		html, err := s.html.Card(render.NewCardView(node, uptime))
		if err != nil {
			s.log.Error(context.Background(), "render card", logger.String("target", node.Name), logger.Error(err))
			continue
		}
		msg := cardMessage{
			Type:    messageTypeCard,
			Boot:    s.bootID,
			Name:    node.Name,
			Version: node.Version,
			Status:  node.Status,
			Class:   node.StatusClass,
			HTML:    html,
		}
		_ = conn.SetWriteDeadline(time.Now().Add(pushWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
		sent[node.Name] = node.Version
	}
	return nil
}

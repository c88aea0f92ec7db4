package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

// Настройки WebSocket
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между websocket и Hub. Один бинарный кадр
// websocket - один пакет протокола.
type Client struct {
	hub     *network.Hub
	conn    *websocket.Conn
	peer    *network.Peer
	maxSize int64

	log *logrus.Entry
}

func NewClient(hub *network.Hub, conn *websocket.Conn, peer *network.Peer, maxSize int64) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		peer:    peer,
		maxSize: maxSize,
		log: logger.WithComponent("ws_client").WithFields(logrus.Fields{
			"peer_id": peer.ID(),
			"session": peer.Session(),
		}),
	}
}

// readPump передаёт входящие кадры в Hub. Выход из него - отключение пира.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.peer.ID())
		if err := c.conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.conn.SetReadLimit(c.maxSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("WS read error")
			}
			return
		}
		if kind != websocket.BinaryMessage {
			c.log.Debug("Non-binary frame ignored")
			continue
		}
		if err := c.hub.Deliver(c.peer.ID(), data); err != nil {
			c.log.WithError(err).Debug("Frame dropped")
		}
	}
}

// writePump отправляет кадры из очереди пира + Ping. Очередь
// закрывается Hub'ом, когда пир удалён.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	out := c.peer.Outbound()
	for {
		select {
		case frame, ok := <-out:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.log.WithError(err).Debug("write frame failed")
				// readPump увидит закрытое соединение и снимет пира
				_ = c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

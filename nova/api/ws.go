package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type wsFrame struct {
	Type   string `json:"type"` // hello | result
	Uptime int64  `json:"uptime_sec,omitempty"`
	Result gin.H  `json:"result,omitempty"`
}

// GET /ws/license streams every recheck result, starting with the latest one.
func (s *Server) streamLicense(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debugf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	results, cancel := s.App.Subscribe()
	defer cancel()

	// the read side only handles control frames and notices the peer leaving
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(f wsFrame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(f)
	}

	if err := write(wsFrame{Type: "hello", Uptime: int64(s.uptime().Seconds())}); err != nil {
		return
	}
	if last := s.App.Last(); last != nil {
		if err := write(wsFrame{Type: "result", Result: resultView(last)}); err != nil {
			return
		}
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case res, ok := <-results:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(wsFrame{Type: "result", Result: resultView(res)}); err != nil {
				log.Debugf("ws write: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

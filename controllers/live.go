// controllers/live.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"

	"equipment_loan_tool/inventory"
	"equipment_loan_tool/logger"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// Live 把库存变更事件推给 websocket 客户端
type Live struct {
	ws *melody.Melody
}

func NewLive(hub *inventory.Hub) *Live {
	l := &Live{ws: melody.New()}
	l.ws.HandleError(func(s *melody.Session, err error) {
		if errors.Is(err, melody.ErrMessageBufferFull) {
			logger.Warnf(s.Request.Context(), "live client too slow, dropping message")
			return
		}
		logger.Errorf(s.Request.Context(), "live session err: %+v", err)
	})
	hub.Subscribe(l.broadcast)
	return l
}

func (l *Live) broadcast(e inventory.Event) {
	if l.ws.IsClosed() {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := l.ws.Broadcast(b); err != nil {
		logger.Warnf(context.Background(), "live broadcast err: %v", err)
	}
}

func (l *Live) Handle(c *gin.Context) {
	if err := l.ws.HandleRequest(c.Writer, c.Request); err != nil {
		logger.Errorf(c.Request.Context(), "live HandleRequest err: %+v", err)
	}
}

func (l *Live) Sessions() int { return l.ws.Len() }

func (l *Live) Close() error { return l.ws.Close() }

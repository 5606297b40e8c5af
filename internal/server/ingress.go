package server

import (
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Effector bridges connect from anywhere on the robot LAN.
	},
}

// stateMessage is the ingress wire format for effector samples.
type stateMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

const (
	msgPosition   = "position"
	msgVelocity   = "velocity"
	msgForceInput = "force_input"
)

// handleStateIngress receives position, velocity, and input-force samples
// and stores each in the feed's latest-value cell, stamped at arrival.
func (s *Server) handleStateIngress(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.logger.Info("state ingress connected", "remote", conn.RemoteAddr())

	for {
		var msg stateMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Info("state ingress disconnected", "err", err)
			return nil
		}

		v := mgl64.Vec3{msg.X, msg.Y, msg.Z}
		now := time.Now()
		switch msg.Type {
		case msgPosition:
			s.feed.SetPosition(v, now)
		case msgVelocity:
			s.feed.SetVelocity(v, now)
		case msgForceInput:
			s.feed.SetForceInput(v, now)
		default:
			s.logger.Warn("unknown state message type", "type", msg.Type)
		}
	}
}

// handleForceEgress subscribes the connection to force commands.
func (s *Server) handleForceEgress(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	s.logger.Info("force subscriber connected", "remote", conn.RemoteAddr())

	sub := s.hub.add(conn)
	go s.hub.serve(sub)

	// Drain control frames until the peer goes away, then unsubscribe.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(sub)
	return nil
}

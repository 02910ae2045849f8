package http

import (
	"quiz-portal/internal/domain"
	"quiz-portal/internal/events"

	"github.com/gin-gonic/gin"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload"`
}

type helloPayload struct {
	Authenticated bool        `json:"authenticated"`
	Email         string      `json:"email,omitempty"`
	Role          domain.Role `json:"role"`
}

// serveEvents streams session-change events of this browser and leaderboard
// updates over a websocket until the client disconnects.
func (s *Server) serveEvents(c *gin.Context) {
	sess := currentSession(c)
	s.saveSession(c, sess)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	sessionEvents, cancelSession := s.Hub.Subscribe(events.SessionTopic(sess.ID()))
	defer cancelSession()
	rankingEvents, cancelRankings := s.Hub.Subscribe(events.TopicRankings)
	defer cancelRankings()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				s.log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			var (
				evt events.Event
				ok  bool
			)
			select {
			case evt, ok = <-sessionEvents:
			case evt, ok = <-rankingEvents:
			case <-closeSignals:
				return
			}
			if !ok {
				return
			}
			select {
			case send <- outboundMessage{Type: evt.Type, Topic: evt.Topic, Payload: evt.Payload}:
			case <-closeSignals:
				return
			}
		}
	}()

	hello := helloPayload{Authenticated: sess.Authenticated(), Role: sess.Role()}
	if u := sess.User(); u != nil {
		hello.Email = u.Email
	}
	send <- outboundMessage{Type: "hello", Payload: hello}

	// inbound frames carry nothing; reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

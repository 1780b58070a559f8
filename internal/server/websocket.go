package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/session"
)

const writeWait = 10 * time.Second

// handleWebsocket runs one session per connection. Every text frame is an
// input line and every reply a JSON encoded session.Result.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(constants.MaxInputLength)

	ctx := r.Context()
	sess := session.NewLimited(s.maxBits)
	log := s.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("Websocket connected")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				log.Debug().Msg("Websocket closed by client")
			case errors.Is(err, context.Canceled):
				conn.Close(websocket.StatusGoingAway, "server shutting down")
			default:
				log.Debug().Err(err).Msg("Websocket read failed")
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		res, ok := sess.Submit(string(data))
		if !ok {
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err = wsjson.Write(writeCtx, conn, res)
		cancel()
		if err != nil {
			log.Debug().Err(err).Msg("Websocket write failed")
			return
		}
	}
}

// originPatterns converts the CORS origins to the host patterns the
// websocket handshake checks.
func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.origins))
	for _, o := range s.origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		patterns = append(patterns, o)
	}
	return patterns
}

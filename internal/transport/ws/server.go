package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/world"
	"proofline.ai/internal/sim/world/logic/rates"
)

// Server accepts COMMAND messages over websocket and answers each with a
// RESULT once the world loop has applied it. Commands from one connection
// are applied in the order they were sent.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	// CommandTimeout bounds the wait for one result.
	CommandTimeout time.Duration

	// RateWindowTicks and RateMax cap the commands one connection may send
	// per window of world ticks. Zero disables the cap.
	RateWindowTicks uint64
	RateMax         int
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		CommandTimeout: 5 * time.Second,
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		actor := strings.TrimSpace(r.URL.Query().Get("actor"))
		if actor == "" {
			actor = "ws-" + uuid.NewString()[:8]
		}

		var window rates.Window
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var res protocol.ResultMsg
			if ok, cd := window.Take(s.world.CurrentTick(), s.RateWindowTicks, s.RateMax); !ok {
				res = protocol.ErrorResult(s.world.CurrentTick(), protocol.ErrRateLimited, fmt.Sprintf("retry in %d ticks", cd))
			} else {
				res = s.handle(r.Context(), actor, msg)
			}
			if err := writeJSON(conn, res); err != nil {
				return
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, actor string, msg []byte) protocol.ResultMsg {
	tick := s.world.CurrentTick()
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ErrorResult(tick, protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.Type != protocol.TypeCommand {
		return protocol.ErrorResult(tick, protocol.ErrProtoBadRequest, "expected "+protocol.TypeCommand)
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.ErrorResult(tick, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	var cmd protocol.CommandMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return protocol.ErrorResult(tick, protocol.ErrBadRequest, err.Error())
	}
	if err := cmd.Validate(); err != nil {
		return protocol.ErrorResult(tick, protocol.ErrBadRequest, err.Error())
	}
	if cmd.Actor == "" {
		cmd.Actor = actor
	}

	ctx, cancel := context.WithTimeout(ctx, s.CommandTimeout)
	defer cancel()
	res, err := s.world.Submit(ctx, cmd)
	if err != nil {
		if s.log != nil {
			s.log.Printf("ws %s: %v", actor, err)
		}
		return protocol.ErrorResult(tick, protocol.ErrWorldBusy, err.Error())
	}
	return res
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

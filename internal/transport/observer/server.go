package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/sim/world"
	"proofline.ai/internal/sim/world/kernel/model"
)

// Server streams GRID_STATE messages to read-only observers over websocket.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	// AllowRemote lifts the loopback-only restriction.
	AllowRemote bool
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || IsLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		cats := s.world.Catalogs()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			RunID:           cfg.RunID,
			Tick:            s.world.CurrentTick(),
			WorldParams: observerproto.WorldParams{
				TickRateHz: cfg.TickRateHz,
				TickDT:     cfg.TickDT,
				TileSize:   model.TileSize,
			},
			MachineTypes:  cats.IDs(),
			CatalogDigest: cats.Machines.Digest,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// The first message must be SUBSCRIBE.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		sid := "O-" + uuid.NewString()
		out := make(chan []byte, 16)
		select {
		case s.world.ObserverJoin() <- world.ObserverJoinRequest{
			SessionID:  sid,
			Out:        out,
			EveryTicks: sub.EveryTicks,
			Area:       sub.Area,
			Links:      sub.Links,
		}:
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		if s.log != nil {
			s.log.Printf("observer %s joined from %s", sid, r.RemoteAddr)
		}
		defer func() {
			select {
			case s.world.ObserverLeave() <- sid:
			default:
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Further SUBSCRIBE messages update the session.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			select {
			case s.world.ObserverSubscribe() <- world.ObserverSubscribeRequest{
				SessionID:  sid,
				EveryTicks: sub.EveryTicks,
				Area:       sub.Area,
				Links:      sub.Links,
			}:
			default:
				// Dropped under load; the client may resend.
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")
		select {
		case <-writeDone:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.EveryTicks < 0 {
		sub.EveryTicks = 0
	}
	return sub, true
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

// IsLoopbackRemote reports whether an http.Request.RemoteAddr is a loopback address.
func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

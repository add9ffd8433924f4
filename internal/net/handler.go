package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"ironveil/server/internal/catalog"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/sim"
)

type HandlerConfig struct {
	Logger *log.Logger
}

// Handler terminates HTTP and websocket traffic and feeds the gateway.
type Handler struct {
	gateway  *Gateway
	loop     *sim.Loop
	logger   *log.Logger
	upgrader websocket.Upgrader
	mux      *nethttp.ServeMux
}

func NewHandler(gateway *Gateway, loop *sim.Loop, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	h := &Handler{
		gateway: gateway,
		loop:    loop,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/join", h.handleJoin)
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/healthz", h.handleHealth)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleJoin(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	resp := h.gateway.Join()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Printf("failed to encode join response: %v", err)
	}
}

func (h *Handler) handleWS(w nethttp.ResponseWriter, r *nethttp.Request) {
	entityID := r.URL.Query().Get("id")
	if entityID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", entityID, err)
		return
	}

	sub, ok := h.gateway.Subscribe(entityID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown entity")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	h.readLoop(entityID, sub, conn)
}

// readLoop drains client messages until the connection dies, translating each
// into a queued simulation command.
func (h *Handler) readLoop(entityID string, sub *subscriber, conn *websocket.Conn) {
	defer h.gateway.Disconnect(entityID)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", entityID, err)
			continue
		}

		switch msg.Type {
		case messageTypePing:
			h.writePong(sub)
		case messageTypeAttack, messageTypeAbility, messageTypeMutate:
			cmd, reason := commandFromMessage(entityID, msg)
			if reason != "" {
				h.writeReject(sub, msg.Seq, reason, false)
				continue
			}
			if ok, rejectReason := h.loop.Enqueue(cmd); !ok {
				h.writeReject(sub, msg.Seq, rejectReason, rejectReason == sim.CommandRejectQueueLimit)
				continue
			}
			h.writeAck(sub, msg.Seq)
		default:
			h.logger.Printf("discarding unknown message type %q from %s", msg.Type, entityID)
		}
	}
}

// commandFromMessage validates the envelope and builds the typed command.
// A non-empty reason means the message was rejected before queueing.
func commandFromMessage(entityID string, msg clientMessage) (sim.Command, string) {
	cmd := sim.Command{
		ActorID:  entityID,
		IssuedAt: time.Now(),
	}
	switch msg.Type {
	case messageTypeAttack:
		if msg.Target == "" {
			return sim.Command{}, "missing_target"
		}
		cmd.Type = sim.CommandBasicAttack
		cmd.Attack = &sim.BasicAttackCommand{TargetID: msg.Target, Weapon: catalog.WeaponKey(msg.Weapon)}
	case messageTypeAbility:
		if msg.Ability == "" {
			return sim.Command{}, "missing_ability"
		}
		cmd.Type = sim.CommandAbilityAttack
		cmd.Ability = &sim.AbilityAttackCommand{Ability: catalog.AbilityKey(msg.Ability), TargetID: msg.Target}
	case messageTypeMutate:
		kind := resources.Kind(msg.Kind)
		switch kind {
		case resources.KindHealth, resources.KindMana, resources.KindStamina:
		default:
			return sim.Command{}, "unknown_resource"
		}
		cmd.Type = sim.CommandMutate
		cmd.Mutate = &sim.MutateCommand{Kind: kind, Amount: msg.Amount, Source: msg.Source}
	}
	return cmd, ""
}

func (h *Handler) writeAck(sub *subscriber, seq uint64) {
	data, err := json.Marshal(commandAckMessage{Ver: protocolVersion, Type: "ack", Seq: seq})
	if err != nil {
		return
	}
	sub.write(data)
}

func (h *Handler) writeReject(sub *subscriber, seq uint64, reason string, retry bool) {
	data, err := json.Marshal(commandRejectMessage{Ver: protocolVersion, Type: "reject", Seq: seq, Reason: reason, Retry: retry})
	if err != nil {
		return
	}
	sub.write(data)
}

func (h *Handler) writePong(sub *subscriber) {
	data, err := json.Marshal(pongMessage{Ver: protocolVersion, Type: "pong", ServerTime: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	sub.write(data)
}

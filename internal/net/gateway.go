package net

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ironveil/server/internal/engine"
	"ironveil/server/internal/events"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/sim"
	"ironveil/server/logging"
	"ironveil/server/stats"
)

// Gateway owns the live websocket subscribers and bridges them to the
// simulation: inbound messages become queued commands, gameplay events fan
// out to every connected client.
type Gateway struct {
	mu          sync.Mutex
	engine      *engine.Engine
	loop        *sim.Loop
	publisher   logging.Publisher
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	unsubscribe func()
}

// writeWait bounds every outbound write. Broadcasts run on the engine's
// event path, so a stalled peer must fail fast instead of holding the lock.
const writeWait = 10 * time.Second

// subscriberConn is the slice of *websocket.Conn the gateway writes through.
type subscriberConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscriber struct {
	conn subscriberConn
	mu   sync.Mutex
}

func newSubscriber(conn subscriberConn) *subscriber {
	return &subscriber{conn: conn}
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

// NewGateway wires a gateway to the engine and command loop and starts
// listening for gameplay events to broadcast.
func NewGateway(eng *engine.Engine, loop *sim.Loop, publisher logging.Publisher) *Gateway {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	g := &Gateway{
		engine:      eng,
		loop:        loop,
		publisher:   publisher,
		subscribers: make(map[string]*subscriber),
	}
	g.unsubscribe = eng.Subscribe(g.broadcastEvent)
	return g
}

// Close detaches the gateway from the engine bus and drops every subscriber.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	g.mu.Lock()
	subs := make([]*subscriber, 0, len(g.subscribers))
	for id, sub := range g.subscribers {
		subs = append(subs, sub)
		delete(g.subscribers, id)
	}
	g.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
}

// Join registers a fresh player entity and returns its starting snapshot.
func (g *Gateway) Join() joinResponse {
	id := g.nextID.Add(1)
	playerID := fmt.Sprintf("player-%d", id)
	g.engine.RegisterEntity(playerID, "player", stats.ArchetypePlayer)

	resp := joinResponse{
		ID:        playerID,
		Resources: make(map[string]resourceView, 3),
	}
	for _, kind := range []resources.Kind{resources.KindHealth, resources.KindMana, resources.KindStamina} {
		current, max, ok := g.engine.GetResource(playerID, kind)
		if !ok {
			continue
		}
		resp.Resources[string(kind)] = resourceView{Current: current, Max: max}
	}
	if derived, ok := g.engine.DerivedStats(playerID); ok {
		resp.Stats = derived
	}
	cat := g.engine.Catalog()
	for _, key := range cat.AbilityKeys() {
		resp.Abilities = append(resp.Abilities, string(key))
	}
	for _, key := range cat.WeaponKeys() {
		resp.Weapons = append(resp.Weapons, string(key))
	}
	return resp
}

// Subscribe associates a connection with a registered entity. A second
// subscription for the same id replaces the first.
func (g *Gateway) Subscribe(entityID string, conn *websocket.Conn) (*subscriber, bool) {
	if _, ok := g.engine.GetCombatStats(entityID); !ok {
		return nil, false
	}

	g.mu.Lock()
	if existing, ok := g.subscribers[entityID]; ok {
		existing.conn.Close()
	}
	sub := newSubscriber(conn)
	g.subscribers[entityID] = sub
	g.mu.Unlock()
	return sub, true
}

// Disconnect drops the subscriber and removes its entity from the simulation.
func (g *Gateway) Disconnect(entityID string) {
	g.mu.Lock()
	sub, ok := g.subscribers[entityID]
	if ok {
		delete(g.subscribers, entityID)
	}
	g.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
	g.engine.RemoveEntity(entityID)
}

// SendMessage implements engine.Messenger by pushing a plain text line to the
// entity's connection, if any.
func (g *Gateway) SendMessage(entityID, text string) error {
	g.mu.Lock()
	sub, ok := g.subscribers[entityID]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	data, err := json.Marshal(serverEvent{Ver: protocolVersion, Type: "message", Event: "text", Data: text})
	if err != nil {
		return err
	}
	return sub.write(data)
}

const protocolVersion = 1

func (g *Gateway) broadcastEvent(event events.Event) {
	name := eventName(event)
	if name == "" {
		return
	}
	envelope := serverEvent{
		Ver:   protocolVersion,
		Type:  "event",
		Event: name,
		Tick:  g.engine.CurrentTick(),
		Data:  event,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		g.publisher.Publish(context.Background(), logging.Event{
			Type:     "system.broadcast_failed",
			Severity: logging.SeverityWarn,
			Category: logging.CategorySystem,
			Extra:    map[string]any{"event": name, "error": err.Error()},
		})
		return
	}

	g.mu.Lock()
	subs := make([]*subscriber, 0, len(g.subscribers))
	for _, sub := range g.subscribers {
		subs = append(subs, sub)
	}
	g.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(data); err != nil {
			// Read loop notices the dead connection and disconnects.
			continue
		}
	}
}

func eventName(event events.Event) string {
	switch event.(type) {
	case events.ResourceChanged:
		return "resourceChanged"
	case events.ContainerApplied:
		return "containerApplied"
	case events.ContainerExpired:
		return "containerExpired"
	case events.ComboCompleted:
		return "comboCompleted"
	case events.SessionStarted:
		return "sessionStarted"
	case events.SessionEnded:
		return "sessionEnded"
	case events.RewardGranted:
		return "rewardGranted"
	default:
		return ""
	}
}

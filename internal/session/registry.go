package session

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"ironveil/server/internal/events"
	"ironveil/server/logging"
	logsession "ironveil/server/logging/session"
)

// Metrics aggregates combat activity across a session's lifetime.
type Metrics struct {
	TotalDamage      int64
	AttacksAttempted uint64
	SuccessfulHits   uint64
	Accuracy         float64
	HighestHit       int
}

// Record is the per-container delta folded into a session's metrics.
// ContainerID keys idempotency: recording the same container twice is a no-op.
type Record struct {
	ContainerID string
	Attacks     uint64
	Hits        uint64
	Damage      int64
	HighestHit  int
}

type session struct {
	id           string
	participants map[string]struct{}
	startedAt    time.Time
	metrics      Metrics
	recorded     map[string]struct{}
}

// Registry owns the short-lived participant groupings used for metrics.
// Sessions are created lazily on first interaction and torn down when empty.
type Registry struct {
	clock         logging.Clock
	bus           *events.Bus
	publisher     logging.Publisher
	tickFn        func() uint64
	sessions      map[string]*session
	byParticipant map[string]string
}

func NewRegistry(clock logging.Clock, bus *events.Bus, publisher logging.Publisher, tickFn func() uint64) *Registry {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Registry{
		clock:         clock,
		bus:           bus,
		publisher:     publisher,
		tickFn:        tickFn,
		sessions:      make(map[string]*session),
		byParticipant: make(map[string]string),
	}
}

func (r *Registry) tick() uint64 {
	if r.tickFn == nil {
		return 0
	}
	return r.tickFn()
}

// GetOrCreateSession returns the session already containing any of the given
// participants, absorbing the rest into it, or creates a fresh one. A
// participant belongs to at most one session; reassignment replaces the old
// membership and may tear the old session down if it empties.
func (r *Registry) GetOrCreateSession(participants []string) string {
	if r == nil || len(participants) == 0 {
		return ""
	}
	var target *session
	for _, p := range participants {
		if id, ok := r.byParticipant[p]; ok {
			target = r.sessions[id]
			break
		}
	}
	created := false
	if target == nil {
		target = &session{
			id:           uuid.NewString(),
			participants: make(map[string]struct{}, len(participants)),
			startedAt:    r.clock.Now(),
			recorded:     make(map[string]struct{}),
		}
		r.sessions[target.id] = target
		created = true
	}
	for _, p := range participants {
		if p == "" {
			continue
		}
		if prev, ok := r.byParticipant[p]; ok && prev != target.id {
			r.detach(p, prev)
		}
		target.participants[p] = struct{}{}
		r.byParticipant[p] = target.id
	}
	if created {
		payload := logsession.StartedPayload{
			SessionID:    target.id,
			Participants: sortedParticipants(target.participants),
		}
		if r.bus != nil {
			r.bus.Publish(events.SessionStarted{
				SessionID:    target.id,
				Participants: payload.Participants,
			})
		}
		logsession.Started(context.Background(), r.publisher, r.tick(), payload)
	}
	return target.id
}

// RecordContainerApplied folds an applied container's outcome into the
// session's aggregates. Unknown session ids and repeated container ids are
// ignored.
func (r *Registry) RecordContainerApplied(sessionID string, record Record) {
	if r == nil {
		return
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	if record.ContainerID != "" {
		if _, seen := s.recorded[record.ContainerID]; seen {
			return
		}
		s.recorded[record.ContainerID] = struct{}{}
	}
	s.metrics.AttacksAttempted += record.Attacks
	s.metrics.SuccessfulHits += record.Hits
	s.metrics.TotalDamage += record.Damage
	if record.HighestHit > s.metrics.HighestHit {
		s.metrics.HighestHit = record.HighestHit
	}
	if s.metrics.AttacksAttempted > 0 {
		s.metrics.Accuracy = float64(s.metrics.SuccessfulHits) / float64(s.metrics.AttacksAttempted)
	}
}

// Metrics returns a copy of the session's aggregates.
func (r *Registry) Metrics(sessionID string) (Metrics, bool) {
	if r == nil {
		return Metrics{}, false
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return Metrics{}, false
	}
	return s.metrics, true
}

// SessionOf reports the session currently holding the entity.
func (r *Registry) SessionOf(entityID string) (string, bool) {
	if r == nil {
		return "", false
	}
	id, ok := r.byParticipant[entityID]
	return id, ok
}

// Participants returns the session's membership in a stable order.
func (r *Registry) Participants(sessionID string) []string {
	if r == nil {
		return nil
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	return sortedParticipants(s.participants)
}

// RemoveParticipant detaches an entity from its session, tearing the session
// down once fewer than two participants remain.
func (r *Registry) RemoveParticipant(entityID string) {
	if r == nil {
		return
	}
	id, ok := r.byParticipant[entityID]
	if !ok {
		return
	}
	r.detach(entityID, id)
}

// EndSession tears a session down explicitly, detaching every participant.
func (r *Registry) EndSession(sessionID string) {
	if r == nil {
		return
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for p := range s.participants {
		delete(r.byParticipant, p)
	}
	r.teardown(s)
}

func (r *Registry) detach(entityID, sessionID string) {
	delete(r.byParticipant, entityID)
	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(s.participants, entityID)
	// A session needs two sides to mean anything; losing the second-to-last
	// participant ends it for the remainder too.
	if len(s.participants) <= 1 {
		for p := range s.participants {
			delete(r.byParticipant, p)
		}
		r.teardown(s)
	}
}

func (r *Registry) teardown(s *session) {
	delete(r.sessions, s.id)
	if r.bus != nil {
		r.bus.Publish(events.SessionEnded{SessionID: s.id})
	}
	logsession.Ended(context.Background(), r.publisher, r.tick(), logsession.EndedPayload{
		SessionID:      s.id,
		TotalDamage:    s.metrics.TotalDamage,
		Attacks:        s.metrics.AttacksAttempted,
		Hits:           s.metrics.SuccessfulHits,
		Accuracy:       s.metrics.Accuracy,
		HighestHit:     s.metrics.HighestHit,
		DurationMillis: r.clock.Now().Sub(s.startedAt).Milliseconds(),
	})
}

func sortedParticipants(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

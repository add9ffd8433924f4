package sim

import (
	"sync"
	"time"

	"ironveil/server/internal/engine"
	"ironveil/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:        15,
		CatchupMaxTicks: 4,
		CommandCapacity: 256,
		PerActorLimit:   8,
	}
}

// StepResult summarizes one completed tick for observers.
type StepResult struct {
	Tick     uint64
	Now      time.Time
	Delta    float64
	Commands int
	Duration time.Duration
}

// LoopHooks lets the transport layer observe loop progress.
type LoopHooks struct {
	AfterStep     func(StepResult)
	OnCommandDrop func(reason string, cmd Command)
}

// Loop coordinates command ingestion and the fixed-timestep engine driver.
// Commands staged between ticks are applied first; the engine's own advance
// (expiry, combo pruning, regeneration) runs after them, so regeneration
// never races a same-tick mutation.
type Loop struct {
	engine *engine.Engine
	buffer *CommandBuffer
	hooks  LoopHooks
	config LoopConfig
	clock  logging.Clock

	queueMu       sync.Mutex
	perActorCount map[string]int
}

func NewLoop(eng *engine.Engine, cfg LoopConfig, clock logging.Clock, hooks LoopHooks) *Loop {
	if eng == nil {
		return nil
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = DefaultLoopConfig().CommandCapacity
	}
	return &Loop{
		engine:        eng,
		buffer:        NewCommandBuffer(cfg.CommandCapacity),
		hooks:         hooks,
		config:        cfg,
		clock:         clock,
		perActorCount: make(map[string]int),
	}
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits. Returns false with a reject reason when the command was dropped.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			l.queueMu.Unlock()
			l.reportDrop(CommandRejectQueueLimit, cmd)
			return false, CommandRejectQueueLimit
		}
		l.perActorCount[cmd.ActorID] = count + 1
	}
	ok := l.buffer.Push(cmd)
	l.queueMu.Unlock()
	if !ok {
		l.reportDrop(CommandRejectQueueFull, cmd)
		return false, CommandRejectQueueFull
	}
	return true, ""
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(now time.Time, delta float64) StepResult {
	if l == nil {
		return StepResult{}
	}
	commands := l.drainCommands()
	for _, cmd := range commands {
		l.dispatch(cmd)
	}
	l.engine.Advance(delta)
	return StepResult{
		Tick:     l.engine.CurrentTick(),
		Now:      now,
		Delta:    delta,
		Commands: len(commands),
	}
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = DefaultLoopConfig().TickRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	last := l.clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := l.clock.Now()
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
			}
			last = now

			start := l.clock.Now()
			result := l.Advance(now, dt)
			result.Duration = l.clock.Now().Sub(start)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) dispatch(cmd Command) {
	switch cmd.Type {
	case CommandBasicAttack:
		if cmd.Attack != nil {
			_, _ = l.engine.RequestBasicAttack(cmd.ActorID, cmd.Attack.TargetID, cmd.Attack.Weapon)
		}
	case CommandAbilityAttack:
		if cmd.Ability != nil {
			_, _ = l.engine.RequestAbilityAttack(cmd.ActorID, cmd.Ability.Ability, cmd.Ability.TargetID)
		}
	case CommandMutate:
		if cmd.Mutate != nil {
			source := cmd.Mutate.Source
			if source == "" {
				source = "command"
			}
			_ = l.engine.RequestResourceMutation(cmd.ActorID, cmd.Mutate.Kind, cmd.Mutate.Amount, source)
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) reportDrop(reason string, cmd Command) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
}

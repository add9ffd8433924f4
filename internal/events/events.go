package events

// Event is the closed set of gameplay notifications delivered synchronously,
// on the tick that produced them, to subscribers registered with a Bus.
// Each variant carries a fully typed payload; there is no catch-all shape.
type Event interface {
	isEvent()
}

// ResourceChanged reports a ledger value that actually moved.
type ResourceChanged struct {
	Entity   string
	Kind     string
	Previous float64
	Current  float64
	Max      float64
	Source   string
}

// TargetResult summarizes one target's outcome inside a ContainerApplied event.
type TargetResult struct {
	Target        string
	Damage        int
	Critical      bool
	Blocked       bool
	BlockFraction float64
	Killed        bool
	Skipped       bool
}

// ContainerApplied reports a damage container reaching its Applied status.
type ContainerApplied struct {
	ContainerID string
	SessionID   string
	Source      string
	Ability     string
	Results     []TargetResult
}

// ContainerExpired reports a pending container dropped by the expiry sweep.
type ContainerExpired struct {
	ContainerID string
	Source      string
}

// ComboCompleted reports a fully matched ability sequence.
type ComboCompleted struct {
	Entity     string
	Pattern    string
	Steps      int
	Multiplier float64
}

// SessionStarted reports lazy creation of a combat session.
type SessionStarted struct {
	SessionID    string
	Participants []string
}

// SessionEnded reports teardown of a combat session.
type SessionEnded struct {
	SessionID string
}

// RewardGranted reports experience earned from an applied container.
type RewardGranted struct {
	Entity      string
	ContainerID string
	Experience  int
	Kills       int
}

func (ResourceChanged) isEvent()  {}
func (ContainerApplied) isEvent() {}
func (ContainerExpired) isEvent() {}
func (ComboCompleted) isEvent()   {}
func (SessionStarted) isEvent()   {}
func (SessionEnded) isEvent()     {}
func (RewardGranted) isEvent()    {}

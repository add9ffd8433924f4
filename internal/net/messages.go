package net

// clientMessage is the single envelope accepted over the websocket. Type
// selects which of the optional blocks is consulted.
type clientMessage struct {
	Ver     int     `json:"ver,omitempty"`
	Type    string  `json:"type"`
	Seq     uint64  `json:"seq,omitempty"`
	Target  string  `json:"target,omitempty"`
	Weapon  string  `json:"weapon,omitempty"`
	Ability string  `json:"ability,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Source  string  `json:"source,omitempty"`
}

const (
	messageTypeAttack  = "attack"
	messageTypeAbility = "ability"
	messageTypeMutate  = "mutate"
	messageTypePing    = "ping"
)

type commandAckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick,omitempty"`
}

type commandRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
	Tick   uint64 `json:"tick,omitempty"`
}

type pongMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
}

// serverEvent wraps a gameplay event for broadcast. Event names mirror the
// internal event variants in lowerCamel form.
type serverEvent struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	Event string `json:"event"`
	Tick  uint64 `json:"tick"`
	Data  any    `json:"data"`
}

type joinResponse struct {
	ID        string                  `json:"id"`
	Resources map[string]resourceView `json:"resources"`
	Abilities []string                `json:"abilities"`
	Weapons   []string                `json:"weapons"`
	Stats     map[string]float64      `json:"stats"`
}

type resourceView struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}

package sim

import (
	"time"

	"ironveil/server/internal/catalog"
	"ironveil/server/internal/resources"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandBasicAttack   CommandType = "BasicAttack"
	CommandAbilityAttack CommandType = "AbilityAttack"
	CommandMutate        CommandType = "Mutate"
)

// BasicAttackCommand requests a weapon swing at a single target.
type BasicAttackCommand struct {
	TargetID string            `json:"targetId"`
	Weapon   catalog.WeaponKey `json:"weapon,omitempty"`
}

// AbilityAttackCommand requests an ability use with an optional target.
type AbilityAttackCommand struct {
	Ability  catalog.AbilityKey `json:"ability"`
	TargetID string             `json:"targetId,omitempty"`
}

// MutateCommand requests a direct resource adjustment.
type MutateCommand struct {
	Kind   resources.Kind `json:"kind"`
	Amount float64        `json:"amount"`
	Source string         `json:"source,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64                `json:"originTick"`
	ActorID    string                `json:"actorId"`
	Type       CommandType           `json:"type"`
	IssuedAt   time.Time             `json:"issuedAt"`
	Attack     *BasicAttackCommand   `json:"attack,omitempty"`
	Ability    *AbilityAttackCommand `json:"ability,omitempty"`
	Mutate     *MutateCommand        `json:"mutate,omitempty"`
}

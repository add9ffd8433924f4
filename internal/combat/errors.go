package combat

import "errors"

var (
	// ErrInvalidRequest rejects malformed container creation: an empty target
	// list, negative base damage, or a missing source.
	ErrInvalidRequest = errors.New("combat: invalid request")
	// ErrContainerNotPending rejects application of a container that already
	// reached a terminal status, or that is unknown (expired containers are
	// destroyed on expiry).
	ErrContainerNotPending = errors.New("combat: container not pending")
	// ErrUnknownTarget marks a target that vanished between container creation
	// and application. The target is skipped, never failing the container.
	ErrUnknownTarget = errors.New("combat: unknown target")
)

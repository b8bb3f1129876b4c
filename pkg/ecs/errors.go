package ecs

import "github.com/rotisserie/eris"

var (
	// ErrUnknownEntity is returned when an entity id is stale or was never issued. Removal and
	// destruction treat it as a logged no-op; only operations that must hand back a result fail.
	ErrUnknownEntity = eris.New("entity does not exist")

	// ErrDuplicateComponent is returned when attaching a component type the entity already holds.
	ErrDuplicateComponent = eris.New("component already attached to entity")

	// ErrMissingSystemMetadata is returned when a system declaration has no name or factory.
	ErrMissingSystemMetadata = eris.New("system declaration is missing required metadata")

	// ErrConfiguration is returned for invalid world setup, such as an empty use list.
	ErrConfiguration = eris.New("invalid world configuration")

	// ErrUnknownSystem is returned when looking up a system name that was never registered.
	ErrUnknownSystem = eris.New("system is not registered")

	// ErrEntityLimit is returned when the entity index space is exhausted.
	ErrEntityLimit = eris.New("max number of entities exceeded")

	// ErrStage is returned when an operation is not allowed in the current stage of the world,
	// such as calling Update from inside a running frame.
	ErrStage = eris.New("operation not allowed in current world stage")
)

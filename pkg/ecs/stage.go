package ecs

type Stage string

const (
	StageCreated Stage = "Created" // The stage of a world that has not been updated yet
	StageRunning Stage = "Running" // World is moved to this stage when Update() is first called
)

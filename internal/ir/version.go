package ir

// Version constants for declaration schema and engine.
const (
	// IRVersion is the declaration schema version.
	IRVersion = "1"

	// EngineVersion is the cellsim engine version.
	EngineVersion = "0.1.0"
)

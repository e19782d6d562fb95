package ir

// NOTE: These are run-log records, not ruleset declarations.
// Generation numbers come from the engine's logical clock.

// RunRecord identifies one simulation run in the log.
type RunRecord struct {
	ID            string `json:"id"`           // UUIDv7 (time-sortable)
	RulesetHash   string `json:"ruleset_hash"` // RulesetHash of the loaded ruleset
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	InitialHash   string `json:"initial_hash"` // GenerationHash of generation 0
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// GenerationRecord describes one settled generation.
type GenerationRecord struct {
	RunID      string       `json:"run_id"`
	Generation int64        `json:"generation"`
	Hash       string       `json:"hash"`
	Changed    int          `json:"changed"` // cells that differ from the previous generation
	Firings    []RuleFiring `json:"firings,omitempty"`
}

// RuleFiring counts how many cells a rule rewrote in one generation.
type RuleFiring struct {
	Rule  int `json:"rule"` // index in declaration order
	Count int `json:"count"`
}

package scans

// PayloadKind tags the shape a tool produces.
type PayloadKind string

const (
	PayloadEmpty      PayloadKind = ""
	PayloadCategories PayloadKind = "categories"
	PayloadNames      PayloadKind = "names"
)

// Payload is a tagged variant: only the field matching Kind is used.
type Payload struct {
	Kind       PayloadKind
	Categories map[string][]string
	Names      []string
}

// Len counts the values carried by the payload.
func (p Payload) Len() int {
	switch p.Kind {
	case PayloadCategories:
		n := 0
		for _, v := range p.Categories {
			n += len(v)
		}
		return n
	case PayloadNames:
		return len(p.Names)
	default:
		return 0
	}
}

// Outcome classifies how a chunk ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeEmpty    Outcome = "empty"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
)

// ChunkResult is what a chunk contributes. Failures are data, not errors.
type ChunkResult struct {
	ChunkID   string
	Tool      string
	Technique string
	Outcome   Outcome
	Payload   Payload
	Message   string // why a chunk failed, for diagnostics only
}

// ToolResult is the fold of every chunk of one tool.
type ToolResult struct {
	Tool     string
	Payload  Payload
	Chunks   int
	TimedOut int
	Failed   int
}

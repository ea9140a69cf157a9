package engine

// State is a lifecycle state of a SecurityContext.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StatePreProcessing
	StateScanning
	StateSanitizing
	StateAuditing
	StateCompleted
	StateFailed
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StatePreProcessing:
		return "pre_processing"
	case StateScanning:
		return "scanning"
	case StateSanitizing:
		return "sanitizing"
	case StateAuditing:
		return "auditing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// validTransitions is the full transition table. Any pair not listed is
// illegal and surfaces as a state-kind error rather than being applied.
var validTransitions = map[State][]State{
	StateIdle:          {StateInitializing, StateFailed},
	StateInitializing:  {StatePreProcessing, StateFailed},
	StatePreProcessing: {StateScanning, StateFailed, StateHalted},
	StateScanning:      {StateSanitizing, StateAuditing, StateFailed, StateHalted},
	StateSanitizing:    {StateAuditing, StateFailed, StateHalted},
	StateAuditing:      {StateCompleted, StateFailed, StateHalted},
	StateCompleted:     {StateIdle, StateInitializing},
	StateFailed:        {StateIdle, StateInitializing},
	StateHalted:        {StateIdle, StateInitializing},
}

// canTransition reports whether the table permits from -> to.
func canTransition(from, to State) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

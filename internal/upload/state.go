package upload

// State is a step of the upload procedure.
type State int

const (
	Idle State = iota
	Gating
	Blocked
	TokenAcquisition
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Gating:
		return "gating"
	case Blocked:
		return "blocked"
	case TokenAcquisition:
		return "token_acquisition"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the orchestrator.
type Status struct {
	State   State `json:"-"`
	Busy    bool  `json:"busy"`
	Locked  bool  `json:"locked"`
	Pending bool  `json:"pending"`
}

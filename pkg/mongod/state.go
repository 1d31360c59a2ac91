package mongod

// State is a Supervisor lifecycle state.
type State int

// Supervisor states.
const (
	StateIdle State = iota
	StateConfiguring
	StateStarting
	StateRunning
	StateWaiting
	StateStopping
	StateStopped
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateConfiguring: "configuring",
	StateStarting:    "starting",
	StateRunning:     "running",
	StateWaiting:     "waiting",
	StateStopping:    "stopping",
	StateStopped:     "stopped",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var transitions = map[State][]State{
	StateIdle:        {StateConfiguring},
	StateConfiguring: {StateStarting, StateFailed},
	StateStarting:    {StateRunning, StateFailed},
	StateRunning:     {StateWaiting, StateStopping},
	StateWaiting:     {StateRunning, StateStopping},
	StateStopping:    {StateStopped},
}

// canTransition reports whether from → to is allowed.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

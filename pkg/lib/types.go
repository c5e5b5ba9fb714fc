package lib

import "time"

// ProcessState is the observed state of a managed process.
type ProcessState int

const (
	ProcessStateUnspecified ProcessState = iota
	ProcessStateRunning
	ProcessStateStopped
)

func (s ProcessState) String() string {
	switch s {
	case ProcessStateRunning:
		return "running"
	case ProcessStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ManagedProcess describes a long-running child whose lifecycle is controlled by orionctl.
// Signature is a regular expression matched against the full command line of running
// processes and must identify the process uniquely.
type ManagedProcess struct {
	Name      string
	Signature string
	Command   []string
	Dir       string
	Env       []string
	LogFile   string
	Ready     *ReadyCheck
}

// ReadyCheck describes an optional readiness probe for a managed process.
type ReadyCheck struct {
	Kind    string
	Address string
	Service string
	Timeout time.Duration
}

// Environment is the one-time initialized local directory holding installed dependencies.
type Environment struct {
	Dir      string
	Manifest string
	Create   []string
	Install  []string
}

// Instance is a launched process as recorded at start time.
type Instance struct {
	ID        string    `toml:"id"`
	PID       int       `toml:"pid"`
	Command   []string  `toml:"command"`
	StartedAt time.Time `toml:"started_at"`
}

// StopMethod tells how a running process was located.
type StopMethod string

const (
	StopMethodNone      StopMethod = ""
	StopMethodRecorded  StopMethod = "recorded"
	StopMethodSignature StopMethod = "signature"
)

// StopResult is the per-process outcome of a stop request.
// Stopped is false with a nil Err when nothing was running.
type StopResult struct {
	Name    string
	Stopped bool
	PIDs    []int
	Method  StopMethod
	Err     error
}

// ProcessStatus captures what is currently known about a managed process.
type ProcessStatus struct {
	Name  string
	State ProcessState
	PIDs  []int
	// Ready is nil when the process has no readiness probe.
	Ready *bool
	// Since is the start time of the oldest recorded instance still running,
	// zero when none of the running PIDs was launched by the controller.
	Since time.Time
}

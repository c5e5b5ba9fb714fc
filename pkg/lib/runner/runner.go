// Package runner launches managed processes detached from the controller and
// finds them again later, by recorded PID or by command-line signature.
package runner

import (
	"fmt"
	"os"
	"regexp"

	"github.com/Protezhe/OrionSupport/pkg/lib"
	"github.com/Protezhe/OrionSupport/pkg/lib/logging"
)

// InstanceIDEnv is set in the environment of every launched process.
const InstanceIDEnv = "ORION_INSTANCE_ID"

var logger = logging.New("runner")

// Runner starts, finds and stops managed processes. Start and stop may happen in
// different invocations of the controller; they share only the state directory
// and the OS process table.
type Runner struct {
	state *stateStore
	self  int
}

// NewRunner creates a Runner that records launched instances under stateDir.
func NewRunner(stateDir string) (*Runner, error) {
	if stateDir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	return &Runner{state: newStateStore(stateDir), self: os.Getpid()}, nil
}

func compileSignature(p lib.ManagedProcess) (*regexp.Regexp, error) {
	if p.Signature == "" {
		return nil, fmt.Errorf("%s: empty signature", p.Name)
	}
	re, err := regexp.Compile(p.Signature)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid signature: %w", p.Name, err)
	}
	return re, nil
}

// matches reports whether pid is alive and its command line matches re.
// This guards recorded PIDs against reuse by an unrelated process.
func (runner *Runner) matches(pid int, re *regexp.Regexp) bool {
	if pid <= 0 || pid == runner.self || !alive(pid) {
		return false
	}
	cmdline, err := commandLine(pid)
	if err != nil {
		return false
	}
	return re.MatchString(cmdline)
}

// scan returns every process other than the controller whose command line matches re.
func (runner *Runner) scan(re *regexp.Regexp) ([]int, error) {
	procs, err := listProcesses()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	var pids []int
	for _, p := range procs {
		if p.PID == runner.self || p.CommandLine == "" {
			continue
		}
		if re.MatchString(p.CommandLine) {
			pids = append(pids, p.PID)
		}
	}
	return pids, nil
}

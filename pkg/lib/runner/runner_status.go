package runner

import (
	"context"
	"sort"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

// Running returns the PIDs of every running instance of p, recorded or not.
// It never signals anything.
func (runner *Runner) Running(ctx context.Context, p lib.ManagedProcess) ([]int, error) {
	re, err := compileSignature(p)
	if err != nil {
		return nil, err
	}

	st, err := runner.state.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for _, inst := range st.Processes[p.Name] {
		if runner.matches(inst.PID, re) {
			seen[inst.PID] = true
		}
	}

	scanned, err := runner.scan(re)
	if err != nil {
		return nil, err
	}
	for _, pid := range scanned {
		seen[pid] = true
	}

	pids := make([]int, 0, len(seen))
	for pid := range seen {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

// Status reports whether p is running. Readiness is left to the caller.
func (runner *Runner) Status(ctx context.Context, p lib.ManagedProcess) (lib.ProcessStatus, error) {
	pids, err := runner.Running(ctx, p)
	if err != nil {
		return lib.ProcessStatus{Name: p.Name}, err
	}
	st := lib.ProcessStatus{Name: p.Name, State: lib.ProcessStateStopped, PIDs: pids}
	if len(pids) == 0 {
		return st, nil
	}
	st.State = lib.ProcessStateRunning

	recorded, err := runner.Instances(ctx, p)
	if err != nil {
		return st, err
	}
	for _, inst := range recorded {
		if !containsPID(pids, inst.PID) {
			continue
		}
		if st.Since.IsZero() || inst.StartedAt.Before(st.Since) {
			st.Since = inst.StartedAt
		}
	}
	return st, nil
}

// Instances returns the recorded instances of p, including ones that may have exited.
func (runner *Runner) Instances(ctx context.Context, p lib.ManagedProcess) ([]lib.Instance, error) {
	st, err := runner.state.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.Processes[p.Name], nil
}

func containsPID(pids []int, pid int) bool {
	i := sort.SearchInts(pids, pid)
	return i < len(pids) && pids[i] == pid
}

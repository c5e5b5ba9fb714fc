package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

const exitPollInterval = 50 * time.Millisecond

// StopOptions tunes Stop. The zero value sends SIGTERM and returns immediately.
type StopOptions struct {
	// Wait, when positive, waits up to this long for the signalled processes to
	// exit and sends SIGKILL to the survivors.
	Wait time.Duration
}

// Stop terminates every running instance of p. Recorded instances that are
// still alive and still match the signature are signalled first; only when
// none is found does Stop fall back to searching the process table by
// signature. Finding nothing is not an error: the result has Stopped=false.
func (runner *Runner) Stop(ctx context.Context, p lib.ManagedProcess, opts StopOptions) lib.StopResult {
	res := lib.StopResult{Name: p.Name}

	re, err := compileSignature(p)
	if err != nil {
		res.Err = err
		return res
	}

	var errs []error
	err = runner.state.update(ctx, func(st *stateFile) error {
		for _, inst := range st.Processes[p.Name] {
			if !runner.matches(inst.PID, re) {
				logger.Debug("dropping stale record", "name", p.Name, "pid", inst.PID)
				continue
			}
			if err := signal(inst.PID, unix.SIGTERM); err != nil {
				if !errors.Is(err, unix.ESRCH) {
					errs = append(errs, fmt.Errorf("signalling pid %d: %w", inst.PID, err))
				}
				continue
			}
			res.PIDs = append(res.PIDs, inst.PID)
		}
		delete(st.Processes, p.Name)
		return nil
	})
	if err != nil {
		// Without the state file we can still find the process by signature.
		errs = append(errs, err)
	}

	if len(res.PIDs) > 0 {
		res.Method = lib.StopMethodRecorded
	} else {
		pids, err := runner.scan(re)
		if err != nil {
			errs = append(errs, err)
		}
		for _, pid := range pids {
			if err := unix.Kill(pid, unix.SIGTERM); err != nil {
				if !errors.Is(err, unix.ESRCH) {
					errs = append(errs, fmt.Errorf("signalling pid %d: %w", pid, err))
				}
				continue
			}
			res.PIDs = append(res.PIDs, pid)
		}
		if len(res.PIDs) > 0 {
			res.Method = lib.StopMethodSignature
		}
	}

	res.Stopped = len(res.PIDs) > 0
	if !res.Stopped {
		res.Err = errors.Join(errs...)
	} else if len(errs) > 0 {
		logger.Warn("partial stop", "name", p.Name, "err", errors.Join(errs...))
	}

	if res.Stopped {
		logger.Info("signalled", "name", p.Name, "pids", res.PIDs, "method", res.Method)
		if opts.Wait > 0 {
			runner.waitOrKill(ctx, res.PIDs, opts.Wait, res.Method == lib.StopMethodRecorded)
		}
	}
	return res
}

// waitOrKill polls until every pid is gone or timeout elapses, then SIGKILLs the survivors.
func (runner *Runner) waitOrKill(ctx context.Context, pids []int, timeout time.Duration, group bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()

	remaining := pids
	for {
		remaining = stillAlive(remaining)
		if len(remaining) == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			for _, pid := range remaining {
				logger.Warn("did not exit in time, killing", "pid", pid, "timeout", timeout)
				if group {
					_ = signal(pid, unix.SIGKILL)
				} else {
					_ = unix.Kill(pid, unix.SIGKILL)
				}
			}
			return
		case <-ticker.C:
		}
	}
}

func stillAlive(pids []int) []int {
	var out []int
	for _, pid := range pids {
		if alive(pid) && !zombie(pid) {
			out = append(out, pid)
		}
	}
	return out
}

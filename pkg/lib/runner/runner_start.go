package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

// Launch starts p detached from the controller and records the new instance.
// It does not wait for the process and does not check whether p is already
// running; launching twice yields two instances.
//
// If the process started but could not be recorded, the instance is returned
// together with the error.
func (runner *Runner) Launch(ctx context.Context, p lib.ManagedProcess) (*lib.Instance, error) {
	if len(p.Command) == 0 || p.Command[0] == "" {
		return nil, errors.New("command is required")
	}

	id := lib.NewID()

	// Not CommandContext: the child must outlive ctx and the controller.
	cmd := exec.Command(p.Command[0], p.Command[1:]...)
	cmd.Dir = p.Dir
	cmd.Env = append(append(os.Environ(), p.Env...), InstanceIDEnv+"="+id)
	cmd.SysProcAttr = detachedSysProcAttr()

	// cmd.Stdin is left nil, so it will use /dev/null
	if p.LogFile != "" {
		logFile, err := openLog(p.LogFile)
		if err != nil {
			return nil, err
		}
		// The child keeps its own descriptor.
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	logger.Debug("starting process", "name", p.Name, "command", lib.CommandLine(p.Command))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", p.Name, err)
	}

	inst := &lib.Instance{
		ID:        id,
		PID:       cmd.Process.Pid,
		Command:   append([]string(nil), p.Command...),
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}

	// Reap the child for as long as the controller lives so it never lingers as a zombie.
	go func() {
		err := cmd.Wait()
		logger.Debug("process exited", "name", p.Name, "pid", inst.PID, "err", err)
	}()

	err := runner.state.update(ctx, func(st *stateFile) error {
		st.Processes[p.Name] = append(st.Processes[p.Name], *inst)
		return nil
	})
	if err != nil {
		return inst, fmt.Errorf("recording %s (pid %d): %w", p.Name, inst.PID, err)
	}

	logger.Info("started", "name", p.Name, "pid", inst.PID, "id", inst.ID)
	return inst, nil
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

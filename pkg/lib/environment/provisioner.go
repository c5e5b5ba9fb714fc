// Package environment provisions the project's local dependency environment
// (a Python virtualenv by default) exactly once.
package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Protezhe/OrionSupport/pkg/lib"
	"github.com/Protezhe/OrionSupport/pkg/lib/logging"
	"github.com/Protezhe/OrionSupport/pkg/lib/output_storage"
)

var logger = logging.New("environment")

// ProvisioningError is returned when the environment could not be created or its
// dependencies could not be installed. Output holds the failing command's
// combined stdout and stderr.
type ProvisioningError struct {
	Step    string
	Command []string
	Output  string
	Err     error
}

func (e *ProvisioningError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provisioning failed at %s", e.Step)
	if len(e.Command) > 0 {
		fmt.Fprintf(&b, " (%s)", lib.CommandLine(e.Command))
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if out := strings.TrimRight(e.Output, "\n"); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Provisioner creates the environment directory and installs the manifest into it.
type Provisioner struct {
	env  lib.Environment
	dir  string
	live io.Writer
}

// NewProvisioner returns a Provisioner that runs its commands from workDir.
func NewProvisioner(env lib.Environment, workDir string) *Provisioner {
	return &Provisioner{env: env, dir: workDir}
}

// SetOutput streams helper command output to w while it runs. nil disables streaming.
func (p *Provisioner) SetOutput(w io.Writer) {
	p.live = w
}

// Provisioned reports whether the environment directory already exists.
func (p *Provisioner) Provisioned() (bool, error) {
	info, err := os.Stat(p.env.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &ProvisioningError{Step: "check", Err: err}
	}
	if !info.IsDir() {
		return false, &ProvisioningError{Step: "check", Err: fmt.Errorf("%s exists and is not a directory", p.env.Dir)}
	}
	return true, nil
}

// Ensure creates and populates the environment unless its directory already
// exists. It reports whether any work was done. A failed install removes the
// freshly created directory so the next call starts over.
func (p *Provisioner) Ensure(ctx context.Context) (bool, error) {
	done, err := p.Provisioned()
	if err != nil {
		return false, err
	}
	if done {
		logger.Debug("environment already present", "dir", p.env.Dir)
		return false, nil
	}

	if len(p.env.Install) > 0 {
		if _, err := os.Stat(p.env.Manifest); err != nil {
			return false, &ProvisioningError{Step: "install", Err: fmt.Errorf("dependency manifest: %w", err)}
		}
	}

	logger.Info("creating environment", "dir", p.env.Dir)
	if len(p.env.Create) > 0 {
		if err := p.run(ctx, "create", p.env.Create); err != nil {
			_ = os.RemoveAll(p.env.Dir)
			return false, err
		}
	} else if err := os.MkdirAll(p.env.Dir, 0o755); err != nil {
		return false, &ProvisioningError{Step: "create", Err: err}
	}

	if done, err := p.Provisioned(); err != nil || !done {
		if err == nil {
			err = &ProvisioningError{Step: "create", Command: p.env.Create, Err: fmt.Errorf("%s was not created", p.env.Dir)}
		}
		return false, err
	}

	if len(p.env.Install) > 0 {
		logger.Info("installing dependencies", "manifest", p.env.Manifest)
		if err := p.run(ctx, "install", p.env.Install); err != nil {
			if rmErr := os.RemoveAll(p.env.Dir); rmErr != nil {
				logger.Warn("could not remove incomplete environment", "dir", p.env.Dir, "err", rmErr)
			}
			return false, err
		}
	}

	return true, nil
}

func (p *Provisioner) run(ctx context.Context, step string, command []string) error {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = p.dir

	output := output_storage.RunNewOutputStorage()
	cmd.Stdout = output
	cmd.Stderr = output

	streamed := make(chan struct{})
	if p.live != nil {
		go func() {
			defer close(streamed)
			_ = output.CopyTo(context.Background(), p.live)
		}()
	} else {
		close(streamed)
	}

	logger.Debug("running", "step", step, "command", lib.CommandLine(command))
	err := cmd.Run()
	output.Stop()
	<-streamed

	if err != nil {
		return &ProvisioningError{Step: step, Command: command, Output: output.String(), Err: err}
	}
	return nil
}

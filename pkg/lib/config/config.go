// Package config resolves the managed process set and the environment
// definition from built-in defaults and an optional orionctl.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Protezhe/OrionSupport/pkg/lib"
	"github.com/Protezhe/OrionSupport/pkg/lib/logging"
)

const (
	// FileName is looked up in the project root when no explicit config path is given.
	FileName = "orionctl.toml"
	// StateDirName holds the instance records and their lock file.
	StateDirName = ".orionctl"

	defaultReadyTimeout = 30 * time.Second
)

var logger = logging.New("config")

// Config is the resolved configuration: absolute paths, expanded commands.
type Config struct {
	Root        string
	StateDir    string
	Environment lib.Environment
	Processes   []lib.ManagedProcess
}

// Process returns the managed process with the given name.
func (c *Config) Process(name string) (lib.ManagedProcess, bool) {
	for _, p := range c.Processes {
		if p.Name == name {
			return p, true
		}
	}
	return lib.ManagedProcess{}, false
}

type file struct {
	Defaults    map[string]string `toml:"defaults"`
	Environment environmentFile   `toml:"environment"`
	Processes   []processFile     `toml:"process"`
}

type environmentFile struct {
	Dir      string   `toml:"dir"`
	Manifest string   `toml:"manifest"`
	Create   []string `toml:"create"`
	Install  []string `toml:"install"`
}

type processFile struct {
	Name      string     `toml:"name"`
	Signature string     `toml:"signature"`
	Command   []string   `toml:"command"`
	Dir       string     `toml:"dir"`
	Env       []string   `toml:"env"`
	LogFile   string     `toml:"log_file"`
	Ready     *readyFile `toml:"ready"`
}

type readyFile struct {
	Kind    string   `toml:"kind"`
	Address string   `toml:"address"`
	Service string   `toml:"service"`
	Timeout duration `toml:"timeout"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// defaults mirror the original deployment: a Telegram bot and the checklist
// web server, both running from the project virtualenv.
func defaults() file {
	return file{
		Defaults: map[string]string{"PORT": "5005"},
		Environment: environmentFile{
			Dir:      ".venv",
			Manifest: "requirements.txt",
			Create:   []string{"python3", "-m", "venv", "${ENV_DIR}"},
			Install:  []string{"${ENV_DIR}/bin/pip", "install", "-r", "${MANIFEST}"},
		},
		Processes: []processFile{
			{
				Name:      "Bot",
				Signature: `python bot\.py`,
				Command:   []string{"${ENV_DIR}/bin/python", "bot.py"},
			},
			{
				Name:      "Checklist server",
				Signature: `python checklists/app\.py`,
				Command:   []string{"${ENV_DIR}/bin/python", "checklists/app.py"},
				Ready: &readyFile{
					Kind:    "tcp",
					Address: "127.0.0.1:${PORT}",
				},
			},
		},
	}
}

// Load resolves the configuration for the project in root. When path is empty,
// root/orionctl.toml is used if present; an explicit path must exist.
func Load(root, path string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	f := defaults()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(absRoot, FileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}

	var overrides file
	md, err := toml.DecodeFile(path, &overrides)
	switch {
	case err == nil:
		logger.Debug("loaded config", "path", path)
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
		}
		merge(&f, overrides)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		logger.Debug("no config file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return resolve(absRoot, f)
}

func merge(dst *file, src file) {
	for k, v := range src.Defaults {
		dst.Defaults[k] = v
	}
	if src.Environment.Dir != "" {
		dst.Environment.Dir = src.Environment.Dir
	}
	if src.Environment.Manifest != "" {
		dst.Environment.Manifest = src.Environment.Manifest
	}
	if len(src.Environment.Create) > 0 {
		dst.Environment.Create = src.Environment.Create
	}
	if len(src.Environment.Install) > 0 {
		dst.Environment.Install = src.Environment.Install
	}
	// A declared process list replaces the built-in one so the order stays explicit.
	if len(src.Processes) > 0 {
		dst.Processes = src.Processes
	}
}

func resolve(root string, f file) (*Config, error) {
	vars := map[string]string{"ROOT": root}
	for k, v := range f.Defaults {
		if _, ok := os.LookupEnv(k); !ok {
			vars[k] = v
		}
	}

	envDir := absPath(root, lib.Expand(f.Environment.Dir, vars))
	manifest := absPath(root, lib.Expand(f.Environment.Manifest, vars))
	vars["ENV_DIR"] = envDir
	vars["MANIFEST"] = manifest

	cfg := &Config{
		Root:     root,
		StateDir: filepath.Join(root, StateDirName),
		Environment: lib.Environment{
			Dir:      envDir,
			Manifest: manifest,
			Create:   lib.ExpandAll(f.Environment.Create, vars),
			Install:  lib.ExpandAll(f.Environment.Install, vars),
		},
	}

	seen := make(map[string]bool, len(f.Processes))
	for i, pf := range f.Processes {
		p, err := resolveProcess(root, pf, vars)
		if err != nil {
			return nil, fmt.Errorf("process #%d: %w", i+1, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("process %q declared twice", p.Name)
		}
		seen[p.Name] = true
		cfg.Processes = append(cfg.Processes, p)
	}
	if len(cfg.Processes) == 0 {
		return nil, errors.New("no processes declared")
	}
	return cfg, nil
}

func resolveProcess(root string, pf processFile, vars map[string]string) (lib.ManagedProcess, error) {
	p := lib.ManagedProcess{
		Name:      strings.TrimSpace(pf.Name),
		Signature: pf.Signature,
		Command:   lib.ExpandAll(pf.Command, vars),
		Dir:       root,
		Env:       lib.ExpandAll(pf.Env, vars),
	}
	if p.Name == "" {
		return p, errors.New("name is required")
	}
	if len(p.Command) == 0 || p.Command[0] == "" {
		return p, fmt.Errorf("%s: command is required", p.Name)
	}
	if p.Signature == "" {
		return p, fmt.Errorf("%s: signature is required", p.Name)
	}
	re, err := regexp.Compile(p.Signature)
	if err != nil {
		return p, fmt.Errorf("%s: invalid signature: %w", p.Name, err)
	}
	if !re.MatchString(lib.CommandLine(p.Command)) {
		return p, fmt.Errorf("%s: signature %q does not match its own command %q", p.Name, p.Signature, lib.CommandLine(p.Command))
	}
	for _, kv := range p.Env {
		if !strings.Contains(kv, "=") {
			return p, fmt.Errorf("%s: env entry %q is not KEY=VALUE", p.Name, kv)
		}
	}
	if pf.Dir != "" {
		p.Dir = absPath(root, lib.Expand(pf.Dir, vars))
	}
	if pf.LogFile != "" {
		p.LogFile = absPath(root, lib.Expand(pf.LogFile, vars))
	}
	if pf.Ready != nil {
		ready := &lib.ReadyCheck{
			Kind:    pf.Ready.Kind,
			Address: lib.Expand(pf.Ready.Address, vars),
			Service: pf.Ready.Service,
			Timeout: pf.Ready.Timeout.Duration,
		}
		if ready.Kind == "" {
			ready.Kind = "tcp"
		}
		if ready.Timeout == 0 {
			ready.Timeout = defaultReadyTimeout
		}
		if ready.Kind != "tcp" && ready.Kind != "grpc" {
			return p, fmt.Errorf("%s: unknown readiness probe kind %q", p.Name, ready.Kind)
		}
		if ready.Address == "" {
			return p, fmt.Errorf("%s: readiness probe address is required", p.Name)
		}
		p.Ready = ready
	}
	return p, nil
}

func absPath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

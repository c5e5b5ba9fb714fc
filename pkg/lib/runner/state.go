package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

const (
	stateFileName = "state.toml"
	lockFileName  = "state.lock"

	stateLockTimeout = 5 * time.Second
	stateLockRetry   = 50 * time.Millisecond
)

// stateFile maps a managed process name to the instances launched for it.
type stateFile struct {
	Processes map[string][]lib.Instance `toml:"processes"`
}

// stateStore persists launched instances. Every access holds an exclusive
// flock so concurrent start and stop invocations serialize.
type stateStore struct {
	dir string
}

func newStateStore(dir string) *stateStore {
	return &stateStore{dir: dir}
}

func (s *stateStore) path() string { return filepath.Join(s.dir, stateFileName) }

func (s *stateStore) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	lockPath := filepath.Join(s.dir, lockFileName)
	fileLock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(ctx, stateLockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, stateLockRetry)
	if err != nil {
		return fmt.Errorf("acquiring state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("state is locked by another orionctl (lock held: %s)", lockPath)
	}
	defer func() { _ = fileLock.Unlock() }()

	return fn()
}

func (s *stateStore) read() (*stateFile, error) {
	st := &stateFile{Processes: make(map[string][]lib.Instance)}
	_, err := toml.DecodeFile(s.path(), st)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}
	if st.Processes == nil {
		st.Processes = make(map[string][]lib.Instance)
	}
	return st, nil
}

func (s *stateStore) write(st *stateFile) error {
	for name, instances := range st.Processes {
		if len(instances) == 0 {
			delete(st.Processes, name)
		}
	}

	tmp, err := os.CreateTemp(s.dir, stateFileName+".*")
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := toml.NewEncoder(tmp).Encode(st); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// load returns a snapshot of the recorded instances.
func (s *stateStore) load(ctx context.Context) (*stateFile, error) {
	var st *stateFile
	err := s.withLock(ctx, func() error {
		var err error
		st, err = s.read()
		return err
	})
	return st, err
}

// update applies fn to the recorded instances and saves the result.
func (s *stateStore) update(ctx context.Context, fn func(*stateFile) error) error {
	return s.withLock(ctx, func() error {
		st, err := s.read()
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		return s.write(st)
	})
}

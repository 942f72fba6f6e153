package scaler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"SignalSentinel/internal/model"
)

// Store persists one State per instrument.
type Store interface {
	Save(ctx context.Context, st *State) error
	Load(ctx context.Context, instrument string) (*State, error)
}

// FileStore keeps each instrument's state in its own JSON file.
type FileStore struct {
	Dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scaler dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(instrument string) (string, error) {
	key, err := model.InstrumentKey(instrument)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.Dir, key+"_scaler.json"), nil
}

// Load reads the state for instrument. Returns ErrNotFitted if the file doesn't exist.
func (f *FileStore) Load(_ context.Context, instrument string) (*State, error) {
	path, err := f.path(instrument)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFitted, instrument)
		}
		return nil, fmt.Errorf("read scaler %s: %w", instrument, err)
	}
	return decodeState(instrument, data)
}

// Save writes the state atomically so readers never observe a partial file.
func (f *FileStore) Save(_ context.Context, st *State) error {
	target, err := f.path(st.Instrument)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, ".scaler-*")
	if err != nil {
		return fmt.Errorf("save scaler %s: %w", st.Instrument, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save scaler %s: %w", st.Instrument, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save scaler %s: %w", st.Instrument, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save scaler %s: %w", st.Instrument, err)
	}
	return nil
}

func decodeState(instrument string, data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", instrument, err)
	}
	if st.Instrument != "" && st.Instrument != instrument {
		return nil, fmt.Errorf("scaler file for %s holds state of %s", instrument, st.Instrument)
	}
	st.Instrument = instrument
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

// MemoryStore is an in-process Store used by tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.states[st.Instrument] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, instrument string) (*State, error) {
	m.mu.RLock()
	data, ok := m.states[instrument]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFitted, instrument)
	}
	return decodeState(instrument, data)
}

// IsNotFitted reports whether err means the instrument has no scaler yet.
func IsNotFitted(err error) bool {
	return errors.Is(err, ErrNotFitted)
}

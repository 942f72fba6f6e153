package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"SignalSentinel/internal/model"
)

// ModelStore keeps one trained Linear model per instrument as JSON files
// and serves them as a Provider.
type ModelStore struct {
	Dir string
}

func NewModelStore(dir string) (*ModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &ModelStore{Dir: dir}, nil
}

func (s *ModelStore) path(instrument string) (string, error) {
	key, err := model.InstrumentKey(instrument)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, "linear_"+key+".json"), nil
}

// Staged is a model written aside. Load keeps returning the previous model
// until Commit.
type Staged interface {
	Commit() error
	Discard()
}

type stagedFile struct {
	instrument string
	tmp        string
	target     string
}

func (f *stagedFile) Commit() error {
	if err := os.Rename(f.tmp, f.target); err != nil {
		os.Remove(f.tmp)
		return fmt.Errorf("commit model %s: %w", f.instrument, err)
	}
	return nil
}

func (f *stagedFile) Discard() { os.Remove(f.tmp) }

// Stage writes m to a temporary file in the store directory.
func (s *ModelStore) Stage(_ context.Context, m *Linear) (Staged, error) {
	target, err := s.path(m.Instrument)
	if err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(s.Dir, ".linear-*")
	if err != nil {
		return nil, fmt.Errorf("stage model %s: %w", m.Instrument, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("stage model %s: %w", m.Instrument, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("stage model %s: %w", m.Instrument, err)
	}
	return &stagedFile{instrument: m.Instrument, tmp: tmp.Name(), target: target}, nil
}

// Save writes the model for its instrument, replacing any previous one.
func (s *ModelStore) Save(ctx context.Context, m *Linear) error {
	staged, err := s.Stage(ctx, m)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// Load reads the model for instrument.
func (s *ModelStore) Load(_ context.Context, instrument string) (*Linear, error) {
	path, err := s.path(instrument)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, instrument)
		}
		return nil, fmt.Errorf("read model %s: %w", instrument, err)
	}
	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", instrument, err)
	}
	if len(m.Weights) == 0 || len(m.Weights) != m.Lookback {
		return nil, fmt.Errorf("model %s: %d weights for lookback %d", instrument, len(m.Weights), m.Lookback)
	}
	return &m, nil
}

func (s *ModelStore) Forecaster(ctx context.Context, instrument string) (Forecaster, error) {
	m, err := s.Load(ctx, instrument)
	if err != nil {
		return nil, err
	}
	return m, nil
}

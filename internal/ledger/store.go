package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gotrader/internal/coins"
)

// ErrLedgerNotFound is returned when a coin has not been seeded yet.
var ErrLedgerNotFound = errors.New("ledger not found")

// Store persists the ledger bundle of a coin.
type Store interface {
	Load(coin coins.Coin) (State, error)
	Save(coin coins.Coin, state State) error
}

// Paths are the three ledger files of one coin.
type Paths struct {
	Position string
	WinLoss  string
	Action   string
}

// FileStore keeps one YAML document per ledger per coin under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) Paths(coin coins.Coin) Paths {
	return Paths{
		Position: filepath.Join(s.Dir, fmt.Sprintf("%s_trading_state_config.yml", coin)),
		WinLoss:  filepath.Join(s.Dir, fmt.Sprintf("%s_won_and_lost_config.yml", coin)),
		Action:   filepath.Join(s.Dir, fmt.Sprintf("%s_actions_to_take.yml", coin)),
	}
}

func (s *FileStore) Load(coin coins.Coin) (State, error) {
	p := s.Paths(coin)
	var st State
	if err := readYAML(p.Position, &st.Position); err != nil {
		return State{}, err
	}
	if err := readYAML(p.WinLoss, &st.WinLoss); err != nil {
		return State{}, err
	}
	if err := readYAML(p.Action, &st.Action); err != nil {
		return State{}, err
	}
	if err := st.Validate(); err != nil {
		return State{}, fmt.Errorf("ledger %s: %w", coin, err)
	}
	return st, nil
}

// Save stages all three files before renaming any of them. The position file
// is renamed last, so a failed save never shows a closed position whose trade
// has not been booked.
func (s *FileStore) Save(coin coins.Coin, st State) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("refusing to save ledger %s: %w", coin, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	p := s.Paths(coin)
	files := []struct {
		path string
		doc  any
	}{
		{p.WinLoss, st.WinLoss},
		{p.Action, st.Action},
		{p.Position, st.Position},
	}
	staged := make([]string, 0, len(files))
	discard := func(from int) {
		for _, tmp := range staged[from:] {
			_ = os.Remove(tmp)
		}
	}
	for _, f := range files {
		tmp, err := stageYAML(f.path, f.doc)
		if err != nil {
			discard(0)
			return fmt.Errorf("save ledger %s: %w", coin, err)
		}
		staged = append(staged, tmp)
	}
	for i, f := range files {
		if err := os.Rename(staged[i], f.path); err != nil {
			discard(i)
			return fmt.Errorf("save ledger %s: %w", coin, err)
		}
	}
	return nil
}

// Seed writes the default state for coin. Existing ledgers are kept unless force is set.
func (s *FileStore) Seed(coin coins.Coin, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(s.Paths(coin).Position); err == nil {
			return false, nil
		}
	}
	if err := s.Save(coin, Default()); err != nil {
		return false, err
	}
	return true, nil
}

func readYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrLedgerNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// stageYAML writes v to a temp file next to path and returns its name.
func stageYAML(path string, v any) (string, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/crypto"
)

// registerPrefix records a state-key prefix so that ComputeRoot covers it.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

var statePrefixes []string

var (
	prefixAccount = registerPrefix("acct:")
	prefixConfig  = registerPrefix("cfg:")
	prefixPlayer  = registerPrefix("player:")
	prefixGame    = registerPrefix("game:")
	prefixMeta    = registerPrefix("meta:")
)

var (
	keyConfig   = prefixConfig + "ledger"
	keySequence = prefixMeta + "seq"
)

type stateSnapshot struct {
	dirty map[string][]byte
}

// StateDB implements core.State on top of a DB with an in-memory write
// buffer, snapshot/rollback, and deterministic state-root computation.
// Ledger records are never deleted, so the buffer only holds writes.
// It is not safe for concurrent use; the ledger serialises access.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:    db,
		dirty: make(map[string][]byte),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	s.dirty[key] = val
}

func (s *StateDB) getJSON(key string, out any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *StateDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.set(key, data)
	return nil
}

// ---- Account ----

// GetAccount returns a zero-balance account for unknown addresses: every
// address implicitly exists in the native currency.
func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	var acc core.Account
	err := s.getJSON(prefixAccount+address, &acc)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.setJSON(prefixAccount+acc.Address, acc)
}

// ---- Ledger records ----

func (s *StateDB) GetConfig() (*core.LedgerConfig, error) {
	var cfg core.LedgerConfig
	if err := s.getJSON(keyConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *StateDB) SetConfig(cfg *core.LedgerConfig) error {
	return s.setJSON(keyConfig, cfg)
}

func (s *StateDB) GetPlayer(address string) (*core.PlayerRecord, error) {
	var p core.PlayerRecord
	if err := s.getJSON(prefixPlayer+address, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *StateDB) SetPlayer(p *core.PlayerRecord) error {
	if p.Owner == "" {
		return errors.New("player record without owner")
	}
	return s.setJSON(prefixPlayer+p.Owner, p)
}

func (s *StateDB) GetGame(id string) (*core.GameRecord, error) {
	var g core.GameRecord
	if err := s.getJSON(prefixGame+id, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *StateDB) SetGame(g *core.GameRecord) error {
	if g.GameID == "" {
		return errors.New("game record without id")
	}
	return s.setJSON(prefixGame+g.GameID, g)
}

// GetSequence returns 0 for a fresh database.
func (s *StateDB) GetSequence() (int64, error) {
	data, err := s.get(keySequence)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(data), 10, 64)
}

func (s *StateDB) SetSequence(seq int64) error {
	s.set(keySequence, []byte(strconv.FormatInt(seq, 10)))
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves a deep copy of the write buffer and returns its ID.
func (s *StateDB) Snapshot() (int, error) {
	s.snapshots = append(s.snapshots, stateSnapshot{dirty: copyBytesMap(s.dirty)})
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to snapshot id and discards it
// along with every later snapshot.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]
	s.dirty = copyBytesMap(snap.dirty)
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot hashes the sorted, length-prefixed key-value pairs of the
// persisted state overlaid with the write buffer. It does not modify state.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			merged[string(it.Key())] = bytes.Clone(it.Value())
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		writeLenPrefixed(&buf, []byte(k))
		writeLenPrefixed(&buf, merged[k])
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer through one batch and clears
// it together with all snapshots.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	s.dirty = make(map[string][]byte)
	s.snapshots = nil
	return nil
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf.Write(n[:])
	buf.Write(b)
}

func copyBytesMap(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = bytes.Clone(v)
	}
	return out
}

// Package ledger runs ledger operations one at a time against a committed
// state and answers read queries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/vm"

	// Register ledger operation handlers.
	_ "github.com/tolelom/tolstake/vm/modules/admin"
	_ "github.com/tolelom/tolstake/vm/modules/escrow"
	_ "github.com/tolelom/tolstake/vm/modules/stake"
)

const defaultCacheSize = 1024

// Receipt describes a committed operation.
type Receipt struct {
	TxID     string         `json:"tx_id"`
	Type     core.TxType    `json:"type"`
	Sequence int64          `json:"sequence"`
	Events   []events.Event `json:"events"`
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithTransfer replaces the Value Transfer Port.
func WithTransfer(f vm.TransferFactory) Option {
	return func(l *Ledger) { l.transfer = f }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCacheSize sets the number of completed games kept in memory.
func WithCacheSize(n int) Option {
	return func(l *Ledger) { l.cacheSize = n }
}

// Ledger serialises every operation and query behind one lock, which gives
// each operation exclusive access to every record it touches.
type Ledger struct {
	mu      sync.Mutex
	state   core.State
	exec    *vm.Executor
	emitter *events.Emitter
	seq     int64

	// Completed games never change again, so they are safe to cache.
	completed *lru.Cache[string, *core.GameRecord]

	// Delivery of notifications is ordered by sequence: emitted is the last
	// sequence delivered, guarded by emitMu.
	emitMu   sync.Mutex
	emitCond *sync.Cond
	emitted  int64

	transfer  vm.TransferFactory
	now       func() time.Time
	cacheSize int
}

// New creates a Ledger over state, restoring the last committed sequence.
func New(state core.State, chainID string, emitter *events.Emitter, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		state:     state,
		emitter:   emitter,
		now:       time.Now,
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cacheSize <= 0 {
		l.cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *core.GameRecord](l.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("game cache: %w", err)
	}
	l.completed = cache
	seq, err := state.GetSequence()
	if err != nil {
		return nil, fmt.Errorf("load sequence: %w", err)
	}
	l.seq = seq
	l.emitted = seq
	l.emitCond = sync.NewCond(&l.emitMu)
	l.exec = vm.NewExecutor(state, chainID, l.transfer)
	return l, nil
}

// Submit executes tx and commits it, or rejects it leaving every record as
// it was. Notifications are emitted after a successful commit, outside the
// state lock, so subscribers may query the ledger. Subscribers must not call
// Submit.
func (l *Ledger) Submit(ctx context.Context, tx *core.Transaction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rcpt, err := l.apply(tx)
	if err != nil {
		log.Printf("[ledger] rejected %s tx %s from %s: %v", tx.Type, shortID(tx.ID), shortID(tx.From), err)
		return nil, err
	}
	l.deliver(rcpt)
	return rcpt, nil
}

// deliver emits rcpt's notifications once every earlier sequence has been
// delivered. No lock is held while subscribers run.
func (l *Ledger) deliver(rcpt *Receipt) {
	l.emitMu.Lock()
	for l.emitted != rcpt.Sequence-1 {
		l.emitCond.Wait()
	}
	l.emitMu.Unlock()

	if l.emitter != nil {
		for _, ev := range rcpt.Events {
			l.emitter.Emit(ev)
		}
	}

	l.emitMu.Lock()
	l.emitted = rcpt.Sequence
	l.emitCond.Broadcast()
	l.emitMu.Unlock()
}

func (l *Ledger) apply(tx *core.Transaction) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapID, err := l.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	seq := l.seq + 1
	evs, err := l.exec.ExecuteTx(tx, seq, l.now().UnixNano())
	if err == nil {
		err = l.state.SetSequence(seq)
	}
	if err == nil {
		err = l.state.Commit()
	}
	if err != nil {
		if revertErr := l.state.RevertToSnapshot(snapID); revertErr != nil {
			log.Printf("[ledger] revert after rejected tx %s: %v", shortID(tx.ID), revertErr)
		}
		return nil, err
	}
	l.seq = seq
	return &Receipt{TxID: tx.ID, Type: tx.Type, Sequence: seq, Events: evs}, nil
}

// Config returns the ledger config, or ErrNotFound before initialization.
func (l *Ledger) Config() (*core.LedgerConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.GetConfig()
}

// Player returns the record for address, or ErrNotFound.
func (l *Ledger) Player(address string) (*core.PlayerRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.GetPlayer(address)
}

// Game returns the record for id, or ErrNotFound.
func (l *Ledger) Game(id string) (*core.GameRecord, error) {
	if g, ok := l.completed.Get(id); ok {
		return cloneGame(g), nil
	}
	l.mu.Lock()
	g, err := l.state.GetGame(id)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if g.Completed {
		l.completed.Add(id, cloneGame(g))
	}
	return g, nil
}

// Account returns the native balance and nonce of address.
func (l *Ledger) Account(address string) (*core.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.GetAccount(address)
}

// StateRoot returns the deterministic hash of the committed state.
func (l *Ledger) StateRoot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.ComputeRoot()
}

// Sequence returns the number of committed operations.
func (l *Ledger) Sequence() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// IsNotFound reports whether err means a queried record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrGameNotFound)
}

func cloneGame(g *core.GameRecord) *core.GameRecord {
	cp := *g
	cp.Participants = append([]string(nil), g.Participants...)
	cp.Stakes = append([]uint64(nil), g.Stakes...)
	return &cp
}

func shortID(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

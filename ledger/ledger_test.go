package ledger_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/tolstake/bank"
	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/internal/testutil"
	"github.com/tolelom/tolstake/ledger"
	"github.com/tolelom/tolstake/storage"
	"github.com/tolelom/tolstake/vm"
	"github.com/tolelom/tolstake/wallet"
)

const (
	chainID      = "ledger-test"
	escrow       = "escrow-account"
	feeRecipient = "fee-account"
	startBalance = 100_000_000

	entryFee    = 20_000_000
	platformFee = 4_000_000
	playerStake = 16_000_000
)

var fixedNow = time.Unix(1_700_000_000, 0)

// flakyTransfer wraps the bank and fails transfers matching failOn.
type flakyTransfer struct {
	inner  core.ValueTransfer
	mu     sync.Mutex
	failOn func(from, to string) bool
}

func (f *flakyTransfer) Transfer(from, to string, amount uint64) error {
	f.mu.Lock()
	fail := f.failOn
	f.mu.Unlock()
	if fail != nil && fail(from, to) {
		return errors.New("port unavailable")
	}
	return f.inner.Transfer(from, to, amount)
}

func (f *flakyTransfer) set(fn func(from, to string) bool) {
	f.mu.Lock()
	f.failOn = fn
	f.mu.Unlock()
}

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) handle(ev events.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.evs = nil
	r.mu.Unlock()
}

func (r *recorder) sequences() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Sequence
	}
	return out
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	t        *testing.T
	db       *testutil.MemDB
	ledger   *ledger.Ledger
	emitter  *events.Emitter
	events   *recorder
	port     *flakyTransfer
	admin    *wallet.Wallet
	operator *wallet.Wallet
	p        *wallet.Wallet
	q        *wallet.Wallet
	broke    *wallet.Wallet
	players  []*wallet.Wallet
}

// newFixture returns an initialized ledger with default fees; p and q hold
// startBalance in their wallets, broke holds nothing.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPlayers(t, 0)
}

// newFixtureWithPlayers also funds n extra players with startBalance.
func newFixtureWithPlayers(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{t: t, db: testutil.NewMemDB(), events: &recorder{}}
	for _, w := range []**wallet.Wallet{&f.admin, &f.operator, &f.p, &f.q, &f.broke} {
		var err error
		*w, err = wallet.Generate(chainID)
		require.NoError(t, err)
	}
	state := storage.NewStateDB(f.db)
	b := bank.New(state)
	require.NoError(t, b.Mint(f.p.PubKey(), startBalance))
	require.NoError(t, b.Mint(f.q.PubKey(), startBalance))
	for i := 0; i < n; i++ {
		w, err := wallet.Generate(chainID)
		require.NoError(t, err)
		require.NoError(t, b.Mint(w.PubKey(), startBalance))
		f.players = append(f.players, w)
	}
	require.NoError(t, state.Commit())

	f.emitter = events.NewEmitter()
	f.emitter.SubscribeAll(f.events.handle)
	l, err := ledger.New(state, chainID, f.emitter,
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithTransfer(func(s core.State) core.ValueTransfer {
			f.port = &flakyTransfer{inner: vm.DefaultTransfer(s)}
			return f.port
		}),
	)
	require.NoError(t, err)
	f.ledger = l

	_, err = f.submit(f.admin, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
		return w.Initialize(n, f.operator.PubKey(), feeRecipient, escrow, core.DefaultFeeSchedule())
	})
	require.NoError(t, err)
	f.events.reset()
	return f
}

func (f *fixture) submit(w *wallet.Wallet, build func(*wallet.Wallet, uint64) (*core.Transaction, error)) (*ledger.Receipt, error) {
	f.t.Helper()
	acc, err := f.ledger.Account(w.PubKey())
	require.NoError(f.t, err)
	tx, err := build(w, acc.Nonce)
	require.NoError(f.t, err)
	return f.ledger.Submit(context.Background(), tx)
}

func (f *fixture) deposit(w *wallet.Wallet) error {
	_, err := f.submit(w, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) { return w.Deposit(n, "") })
	return err
}

func (f *fixture) withdraw(w *wallet.Wallet, amount uint64) error {
	_, err := f.submit(w, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) { return w.Withdraw(n, amount) })
	return err
}

func (f *fixture) createGame(id string, players []string, stakes []uint64) error {
	_, err := f.submit(f.operator, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
		return w.CreateGame(n, id, players, stakes)
	})
	return err
}

func (f *fixture) payout(id, winner string) error {
	_, err := f.submit(f.operator, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
		return w.Payout(n, id, winner)
	})
	return err
}

func (f *fixture) admins(build func(*wallet.Wallet, uint64) (*core.Transaction, error)) error {
	_, err := f.submit(f.admin, build)
	return err
}

func (f *fixture) balance(addr string) uint64 {
	acc, err := f.ledger.Account(addr)
	require.NoError(f.t, err)
	return acc.Balance
}

func (f *fixture) available(w *wallet.Wallet) uint64 {
	p, err := f.ledger.Player(w.PubKey())
	if errors.Is(err, core.ErrNotFound) {
		return 0
	}
	require.NoError(f.t, err)
	return p.AvailableBalance
}

func (f *fixture) pq() []string { return []string{f.p.PubKey(), f.q.PubKey()} }

func TestScenarios(t *testing.T) {
	f := newFixture(t)

	// A: one deposit splits the entry fee.
	require.NoError(t, f.deposit(f.p))
	assert.Equal(t, uint64(playerStake), f.available(f.p))
	assert.Equal(t, uint64(playerStake), f.balance(escrow))
	assert.Equal(t, uint64(platformFee), f.balance(feeRecipient))
	assert.Equal(t, uint64(startBalance-entryFee), f.balance(f.p.PubKey()))
	rec, err := f.ledger.Player(f.p.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(entryFee), rec.TotalDeposited)

	// B: the operator opens a game.
	require.NoError(t, f.deposit(f.q))
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{playerStake, playerStake}))
	g, err := f.ledger.Game("g1")
	require.NoError(t, err)
	assert.Equal(t, uint64(32_000_000), g.PotTotal)
	assert.False(t, g.Completed)
	assert.Equal(t, fixedNow.UnixNano(), g.CreatedAt)
	cfg, err := f.ledger.Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.TotalGames)
	assert.Equal(t, uint64(32_000_000), cfg.TotalVolume)
	rec, err = f.ledger.Player(f.q.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.GamesPlayed)

	// C: payout to P.
	escrowBefore := f.balance(escrow)
	walletBefore := f.balance(f.p.PubKey())
	require.NoError(t, f.payout("g1", f.p.PubKey()))
	assert.Equal(t, uint64(playerStake+32_000_000), f.available(f.p))
	g, err = f.ledger.Game("g1")
	require.NoError(t, err)
	assert.True(t, g.Completed)
	assert.Equal(t, f.p.PubKey(), g.Winner)
	assert.Equal(t, escrowBefore-32_000_000, f.balance(escrow))
	assert.Equal(t, walletBefore+32_000_000, f.balance(f.p.PubKey()))
	rec, err = f.ledger.Player(f.p.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(32_000_000), rec.TotalWon)
	assert.Equal(t, uint64(1), rec.GamesWon)
	assert.Equal(t, uint64(1), rec.GamesPlayed)

	// D: a second payout is rejected and moves nothing.
	root := f.ledger.StateRoot()
	assert.ErrorIs(t, f.payout("g1", f.p.PubKey()), core.ErrGameAlreadyCompleted)
	assert.ErrorIs(t, f.payout("g1", f.q.PubKey()), core.ErrGameAlreadyCompleted)
	assert.Equal(t, root, f.ledger.StateRoot())

	// E: overdrawing the available balance.
	assert.ErrorIs(t, f.withdraw(f.p, 50_000_000), core.ErrInsufficientBalance)
	assert.Equal(t, uint64(48_000_000), f.available(f.p))
}

func TestPayoutLeavesEscrowShortForWithdrawal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	require.NoError(t, f.deposit(f.q))
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{playerStake, playerStake}))
	require.NoError(t, f.payout("g1", f.p.PubKey()))
	require.Zero(t, f.balance(escrow))

	// The winnings were paid out to the wallet and credited to the record,
	// so the escrow cannot back the record any more.
	err := f.withdraw(f.q, playerStake)
	assert.ErrorIs(t, err, core.ErrTransferFailed)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, uint64(playerStake), f.available(f.q))
}

func TestConservationWithoutPayout(t *testing.T) {
	f := newFixture(t)
	total := f.balance(f.p.PubKey()) + f.balance(f.q.PubKey())

	check := func() {
		t.Helper()
		assert.Equal(t, f.available(f.p)+f.available(f.q), f.balance(escrow), "escrow backs available balances")
		sum := f.balance(f.p.PubKey()) + f.balance(f.q.PubKey()) + f.balance(escrow) + f.balance(feeRecipient)
		assert.Equal(t, total, sum, "native currency is conserved")
	}

	require.NoError(t, f.deposit(f.p))
	check()
	require.NoError(t, f.deposit(f.p))
	check()
	require.NoError(t, f.deposit(f.q))
	check()
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{playerStake, playerStake}))
	check()
	require.NoError(t, f.withdraw(f.p, 10_000_000))
	check()
	assert.Error(t, f.withdraw(f.q, playerStake+1))
	check()
	require.NoError(t, f.withdraw(f.q, playerStake))
	check()

	assert.Equal(t, uint64(3*platformFee), f.balance(feeRecipient))
	assert.Equal(t, uint64(2*playerStake-10_000_000), f.available(f.p))
}

func TestWithdrawValidation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.withdraw(f.p, 1), core.ErrInsufficientBalance, "no record yet")
	require.NoError(t, f.deposit(f.p))
	assert.ErrorIs(t, f.withdraw(f.p, 0), core.ErrInvalidAmount)

	before := f.balance(f.p.PubKey())
	require.NoError(t, f.withdraw(f.p, playerStake))
	assert.Zero(t, f.available(f.p))
	assert.Equal(t, before+playerStake, f.balance(f.p.PubKey()))
}

func TestDepositWithoutFunds(t *testing.T) {
	f := newFixture(t)
	err := f.deposit(f.broke)
	assert.ErrorIs(t, err, core.ErrTransferFailed)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	_, err = f.ledger.Player(f.broke.PubKey())
	assert.ErrorIs(t, err, core.ErrNotFound, "failed deposit creates no record")
}

func TestDepositPlatformFeeFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	root := f.ledger.StateRoot()
	f.port.set(func(from, to string) bool { return to == feeRecipient })

	err := f.deposit(f.p)
	assert.ErrorIs(t, err, core.ErrTransferFailed)
	assert.Equal(t, root, f.ledger.StateRoot())
	assert.Equal(t, uint64(startBalance), f.balance(f.p.PubKey()))
	assert.Zero(t, f.balance(escrow))
	assert.Empty(t, f.events.types())
}

func TestWithdrawTransferFailureRestoresBalance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	root := f.ledger.StateRoot()
	f.port.set(func(from, to string) bool { return from == escrow })

	assert.ErrorIs(t, f.withdraw(f.p, playerStake), core.ErrTransferFailed)
	assert.Equal(t, uint64(playerStake), f.available(f.p))
	assert.Equal(t, root, f.ledger.StateRoot())

	f.port.set(nil)
	require.NoError(t, f.withdraw(f.p, playerStake))
}

func TestPayoutTransferFailureLeavesGameOpen(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	require.NoError(t, f.deposit(f.q))
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{playerStake, playerStake}))
	f.port.set(func(from, to string) bool { return from == escrow })

	assert.ErrorIs(t, f.payout("g1", f.q.PubKey()), core.ErrTransferFailed)
	g, err := f.ledger.Game("g1")
	require.NoError(t, err)
	assert.False(t, g.Completed)
	assert.Equal(t, uint64(playerStake), f.available(f.q))

	f.port.set(nil)
	require.NoError(t, f.payout("g1", f.q.PubKey()))
}

func TestPauseGatesEntriesOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	require.NoError(t, f.deposit(f.q))
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{playerStake, playerStake}))

	require.NoError(t, f.admins((*wallet.Wallet).Pause))
	cfg, err := f.ledger.Config()
	require.NoError(t, err)
	assert.True(t, cfg.Paused)

	assert.ErrorIs(t, f.deposit(f.p), core.ErrContractPaused)
	assert.ErrorIs(t, f.createGame("g2", f.pq(), []uint64{1, 1}), core.ErrContractPaused)
	require.NoError(t, f.withdraw(f.q, 1))
	require.NoError(t, f.payout("g1", f.p.PubKey()))

	// Pausing twice changes nothing and reports nothing.
	f.events.reset()
	require.NoError(t, f.admins((*wallet.Wallet).Pause))
	assert.Equal(t, []events.EventType{events.EventTxExecuted}, f.events.types())

	require.NoError(t, f.admins((*wallet.Wallet).Unpause))
	require.NoError(t, f.deposit(f.p))
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{1, 1}))
	root := f.ledger.StateRoot()

	onBehalf := func(typ core.TxType, payload any) func(*wallet.Wallet, uint64) (*core.Transaction, error) {
		return func(w *wallet.Wallet, n uint64) (*core.Transaction, error) { return w.NewTx(typ, n, payload) }
	}
	cases := []struct {
		name   string
		signer *wallet.Wallet
		build  func(*wallet.Wallet, uint64) (*core.Transaction, error)
	}{
		{"deposit for another player", f.q, onBehalf(core.TxDeposit, core.DepositPayload{Player: f.p.PubKey()})},
		{"withdraw for another player", f.q, onBehalf(core.TxWithdraw, core.WithdrawPayload{Player: f.p.PubKey(), Amount: 1})},
		{"withdraw by operator", f.operator, onBehalf(core.TxWithdraw, core.WithdrawPayload{Player: f.p.PubKey(), Amount: 1})},
		{"create game by player", f.p, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
			return w.CreateGame(n, "g2", f.pq(), []uint64{1, 1})
		}},
		{"create game by admin", f.admin, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
			return w.CreateGame(n, "g2", f.pq(), []uint64{1, 1})
		}},
		{"payout by player", f.p, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
			return w.Payout(n, "g1", f.p.PubKey())
		}},
		{"set operator by operator", f.operator, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
			return w.SetOperator(n, f.p.PubKey())
		}},
		{"pause by operator", f.operator, (*wallet.Wallet).Pause},
		{"unpause by player", f.p, (*wallet.Wallet).Unpause},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.submit(tc.signer, tc.build)
			assert.ErrorIs(t, err, core.ErrUnauthorized)
		})
	}
	assert.Equal(t, root, f.ledger.StateRoot(), "rejections leave state untouched")

	err := f.admins(func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
		return w.Initialize(n, f.p.PubKey(), f.p.PubKey(), f.p.PubKey(), core.DefaultFeeSchedule())
	})
	assert.ErrorIs(t, err, core.ErrAlreadyInitialized)
}

func TestSetOperatorHandsOver(t *testing.T) {
	f := newFixture(t)
	newOp := f.q
	require.NoError(t, f.admins(func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
		return w.SetOperator(n, newOp.PubKey())
	}))
	assert.ErrorIs(t, f.createGame("g1", f.pq(), []uint64{1, 1}), core.ErrUnauthorized)

	_, err := f.submit(newOp, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) {
		return w.CreateGame(n, "g1", f.pq(), []uint64{1, 1})
	})
	require.NoError(t, err)
}

func TestCreateGameValidation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{1, 1}))

	assert.ErrorIs(t, f.createGame("g1", f.pq(), []uint64{1, 1}), core.ErrDuplicateGameID)
	assert.ErrorIs(t, f.createGame("g2", f.pq(), []uint64{1}), core.ErrArrayLengthMismatch)
	assert.ErrorIs(t, f.createGame("g2", f.pq()[:1], []uint64{1}), core.ErrPlayerCountOutOfRange)
	assert.ErrorIs(t, f.createGame("", f.pq(), []uint64{1, 1}), core.ErrInvalidGameID)

	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = f.p.PubKey()
	}
	assert.ErrorIs(t, f.createGame("g2", eleven, make([]uint64, 11)), core.ErrPlayerCountOutOfRange)

	cfg, err := f.ledger.Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.TotalGames)
}

func TestCreateGameCountsRepeatedParticipantOnce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	require.NoError(t, f.createGame("g1", []string{f.p.PubKey(), f.p.PubKey(), f.q.PubKey()}, []uint64{1, 1, 1}))

	rec, err := f.ledger.Player(f.p.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.GamesPlayed)

	// q never deposited, so no record was created for them.
	_, err = f.ledger.Player(f.q.PubKey())
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Winning creates the record.
	require.NoError(t, f.payout("g1", f.p.PubKey()))
	assert.ErrorIs(t, f.payout("g1", f.q.PubKey()), core.ErrGameAlreadyCompleted)
}

func TestPayoutValidation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{0, 0}))

	assert.ErrorIs(t, f.payout("missing", f.p.PubKey()), core.ErrGameNotFound)
	assert.ErrorIs(t, f.payout("g1", f.broke.PubKey()), core.ErrInvalidWinner)

	// A zero pot settles without moving funds and creates the winner record.
	require.NoError(t, f.payout("g1", f.q.PubKey()))
	rec, err := f.ledger.Player(f.q.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.GamesWon)
	assert.Zero(t, rec.AvailableBalance)
}

func TestReplayRejected(t *testing.T) {
	f := newFixture(t)
	tx, err := f.p.Deposit(0, "")
	require.NoError(t, err)
	_, err = f.ledger.Submit(context.Background(), tx)
	require.NoError(t, err)

	_, err = f.ledger.Submit(context.Background(), tx)
	assert.ErrorContains(t, err, "invalid nonce")
	assert.Equal(t, uint64(playerStake), f.available(f.p))
}

func TestChainIDMismatch(t *testing.T) {
	f := newFixture(t)
	tx, err := wallet.New(f.p.PrivKey(), "elsewhere").Deposit(0, "")
	require.NoError(t, err)
	_, err = f.ledger.Submit(context.Background(), tx)
	assert.ErrorContains(t, err, "chain id mismatch")
}

func TestEventsEmittedAfterCommit(t *testing.T) {
	f := newFixture(t)

	assert.Error(t, f.withdraw(f.p, 1))
	assert.Empty(t, f.events.types(), "rejected operations emit nothing")

	rcpt, err := f.submit(f.p, func(w *wallet.Wallet, n uint64) (*core.Transaction, error) { return w.Deposit(n, "g9") })
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.EventDeposit, events.EventTxExecuted}, f.events.types())
	require.Len(t, rcpt.Events, 2)
	assert.Equal(t, "g9", rcpt.Events[0].Data["game_id"])
	assert.Equal(t, uint64(entryFee), rcpt.Events[0].Data["amount"])
	assert.Equal(t, rcpt.Sequence, rcpt.Events[0].Sequence)
}

func TestSubscribersMayQueryLedger(t *testing.T) {
	f := newFixture(t)
	var seen uint64
	f.emitter.Subscribe(events.EventDeposit, func(ev events.Event) {
		player, _ := ev.Data["player"].(string)
		if rec, err := f.ledger.Player(player); err == nil {
			seen = rec.AvailableBalance
		}
	})
	require.NoError(t, f.deposit(f.p))
	assert.Equal(t, uint64(playerStake), seen)
}

func TestCommitFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	seq := f.ledger.Sequence()
	root := f.ledger.StateRoot()

	f.db.FailWrites = true
	err := f.deposit(f.p)
	assert.ErrorIs(t, err, testutil.ErrBatchFailed)
	assert.Equal(t, seq, f.ledger.Sequence())
	assert.Equal(t, root, f.ledger.StateRoot())
	assert.Empty(t, f.events.types())

	f.db.FailWrites = false
	require.NoError(t, f.deposit(f.p))
	assert.Equal(t, seq+1, f.ledger.Sequence())
}

func TestRestartRestoresState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deposit(f.p))
	root := f.ledger.StateRoot()
	seq := f.ledger.Sequence()

	l, err := ledger.New(storage.NewStateDB(f.db), chainID, events.NewEmitter())
	require.NoError(t, err)
	assert.Equal(t, seq, l.Sequence())
	assert.Equal(t, root, l.StateRoot())
	rec, err := l.Player(f.p.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(playerStake), rec.AvailableBalance)
}

func TestCompletedGameCopies(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.createGame("g1", f.pq(), []uint64{0, 0}))
	require.NoError(t, f.payout("g1", f.p.PubKey()))

	g, err := f.ledger.Game("g1")
	require.NoError(t, err)
	g.Participants[0] = "mutated"
	g.Winner = "mutated"

	again, err := f.ledger.Game("g1")
	require.NoError(t, err)
	assert.Equal(t, f.p.PubKey(), again.Participants[0])
	assert.Equal(t, f.p.PubKey(), again.Winner)
}

func TestSubmitCanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx, err := f.p.Deposit(0, "")
	require.NoError(t, err)
	_, err = f.ledger.Submit(ctx, tx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueriesBeforeInitialize(t *testing.T) {
	l, err := ledger.New(testutil.NewStateDB(), chainID, nil)
	require.NoError(t, err)
	_, err = l.Config()
	assert.True(t, ledger.IsNotFound(err))
	_, err = l.Game("g1")
	assert.True(t, ledger.IsNotFound(err))
}

func TestConcurrentSubmitMatchesSerialTotals(t *testing.T) {
	const n = 16
	const withdrawal = 6_000_000
	f := newFixtureWithPlayers(t, n)

	// A subscriber that reads the ledger while other operations commit.
	var queried atomic.Int64
	f.emitter.Subscribe(events.EventDeposit, func(ev events.Event) {
		player, _ := ev.Data["player"].(string)
		if _, err := f.ledger.Player(player); err == nil {
			queried.Add(1)
		}
	})

	// Each player signs its own transactions, so nonces never collide.
	submitAll := func(build func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error)) error {
		var g errgroup.Group
		for _, w := range f.players {
			w := w
			g.Go(func() error {
				acc, err := f.ledger.Account(w.PubKey())
				if err != nil {
					return err
				}
				tx, err := build(w, acc.Nonce)
				if err != nil {
					return err
				}
				_, err = f.ledger.Submit(context.Background(), tx)
				return err
			})
		}
		return g.Wait()
	}

	require.NoError(t, submitAll(func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
		return w.Deposit(nonce, "")
	}))
	require.NoError(t, submitAll(func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
		return w.Withdraw(nonce, withdrawal)
	}))

	for _, w := range f.players {
		assert.Equal(t, uint64(playerStake-withdrawal), f.available(w))
		assert.Equal(t, uint64(startBalance-entryFee+withdrawal), f.balance(w.PubKey()))
	}
	assert.Equal(t, uint64(n*(playerStake-withdrawal)), f.balance(escrow))
	assert.Equal(t, uint64(n*platformFee), f.balance(feeRecipient))
	assert.Equal(t, int64(1+2*n), f.ledger.Sequence())

	// Notifications arrive in commit order, each operation exactly once.
	seqs := f.events.sequences()
	assert.Len(t, seqs, 2*2*n)
	assert.IsNonDecreasing(t, seqs)
	assert.Equal(t, int64(n), queried.Load())
}

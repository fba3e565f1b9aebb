// Package indexer maintains secondary indexes over committed ledger
// operations so observers can list a player's games without scanning state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/storage"
)

const (
	prefixPlayerGames = "idx:player:game:"
	prefixPlayerWins  = "idx:player:win:"
)

// Indexer subscribes to ledger notifications and updates lookup tables.
type Indexer struct {
	mu sync.Mutex // guards list read-modify-write
	db storage.DB
}

// New creates an Indexer backed by db and subscribes to relevant events.
// The index keys live outside the state prefixes and do not affect the
// state root.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db}
	emitter.Subscribe(events.EventGameCreated, idx.onGameCreated)
	emitter.Subscribe(events.EventPayout, idx.onPayout)
	return idx
}

// GamesByPlayer returns the ids of every game the player was entered into,
// in creation order.
func (idx *Indexer) GamesByPlayer(player string) ([]string, error) {
	return idx.getList(prefixPlayerGames + player)
}

// WinsByPlayer returns the ids of every game the player won.
func (idx *Indexer) WinsByPlayer(player string) ([]string, error) {
	return idx.getList(prefixPlayerWins + player)
}

// ---- event handlers ----

func (idx *Indexer) onGameCreated(ev events.Event) {
	gameID, _ := ev.Data["game_id"].(string)
	if gameID == "" {
		return
	}
	seen := make(map[string]bool)
	for _, player := range stringList(ev.Data["participants"]) {
		if player == "" || seen[player] {
			continue
		}
		seen[player] = true
		if err := idx.addToList(prefixPlayerGames+player, gameID); err != nil {
			log.Printf("[indexer] game %s player %s: %v", gameID, player, err)
		}
	}
}

func (idx *Indexer) onPayout(ev events.Event) {
	gameID, _ := ev.Data["game_id"].(string)
	winner, _ := ev.Data["winner"].(string)
	if gameID == "" || winner == "" {
		return
	}
	if err := idx.addToList(prefixPlayerWins+winner, gameID); err != nil {
		log.Printf("[indexer] win %s for %s: %v", gameID, winner, err)
	}
}

// stringList accepts both in-process ([]string) and decoded ([]any) lists.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == value {
			return nil
		}
	}
	data, err := json.Marshal(append(ids, value))
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/tolstake/config"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/indexer"
	"github.com/tolelom/tolstake/ledger"
	"github.com/tolelom/tolstake/notify"
	"github.com/tolelom/tolstake/rpc"
	"github.com/tolelom/tolstake/storage"
)

const statusInterval = time.Minute

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Serve the ledger over JSON-RPC",
	Long: `Open the ledger database under data_dir, apply the genesis allocation on
first start, and serve JSON-RPC on rpc_addr until interrupted. When redis.addr
is set every committed notification is also published to redis.channel.`,
	Args: cobra.NoArgs,
	RunE: runNode,
}

func init() {
	rootCmd.AddCommand(nodeCmd)
}

func runNode(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	state := storage.NewStateDB(db)

	// ---- genesis (fresh database only) ----
	fresh := config.IsFresh(state)
	root, err := config.ApplyGenesis(cfg.Genesis, state)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	if fresh {
		log.Printf("[node] genesis applied: %d allocations, root %s", len(cfg.Genesis.Alloc), root)
	}

	// ---- events, indexer, notifications ----
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		pub, err := notify.NewRedis(ctx, &notify.Config{RedisClient: client, Channel: cfg.Redis.Channel})
		if err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		pub.Attach(emitter)
		log.Printf("[node] publishing notifications to redis %s channel %q", cfg.Redis.Addr, cfg.Redis.Channel)
	}

	// ---- ledger ----
	l, err := ledger.New(state, cfg.ChainID, emitter, ledger.WithCacheSize(cfg.CacheSize))
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	log.Printf("[node] chain %s at sequence %d", cfg.ChainID, l.Sequence())

	// ---- RPC ----
	srv := rpc.NewServer(cfg.RPCAddr, rpc.NewHandler(l, idx), cfg.RPCAuthToken)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	if cfg.RPCAuthToken != "" {
		log.Println("[node] RPC bearer token authentication enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[node] shutting down...")
		return srv.Stop()
	})
	g.Go(func() error {
		reportStatus(gctx, l)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("[node] shutdown complete")
	return nil
}

// reportStatus logs the committed sequence whenever it has moved.
func reportStatus(ctx context.Context, l *ledger.Ledger) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	last := l.Sequence()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if seq := l.Sequence(); seq != last {
				last = seq
				log.Printf("[node] sequence %d root %s", seq, l.StateRoot())
			}
		}
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ferreirogomes/harberger/blockchain_listener"
	"github.com/ferreirogomes/harberger/config"
	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/handlers"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/services"
	"github.com/ferreirogomes/harberger/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sincroniza a réplica com o ledger e serve a API HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := storage.NewDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("falha ao abrir banco de dados: %w", err)
	}
	defer db.Close()

	var snapshot *models.Snapshot
	snap, found, err := db.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("falha ao carregar snapshot: %w", err)
	}
	if found {
		snapshot = &snap
		log.Printf("Snapshot carregado: %d ativos, bloco sincronizado %d", snap.State.Len(), snap.SyncedBlock)
	}

	client, err := ledger.Dial(ctx, cfg.RPCURL, cfg.Contract())
	if err != nil {
		return err
	}
	defer client.Close()

	var writer ledger.Writer
	if cfg.PrivateKey != "" {
		if err := client.WithSigner(cfg.PrivateKey, cfg.ChainID); err != nil {
			return err
		}
		writer = client
	} else {
		log.Println("private_key ausente: transações serão apenas preparadas")
	}

	token, ok := cfg.Token()
	if !ok {
		if token, err = client.Currency(ctx); err != nil {
			return fmt.Errorf("falha ao ler token de pagamento: %w", err)
		}
	}

	marshaller, err := services.NewAssetMarshaller(client, cfg.ReadCacheSize)
	if err != nil {
		return err
	}
	replica := services.NewReplica(marshaller, snapshot, cfg.FetchConcurrency)
	if cfg.Account != "" {
		ev := &events.AccountContext{Account: common.HexToAddress(cfg.Account)}
		if _, err := replica.Apply(ctx, []events.Event{ev}); err != nil {
			return fmt.Errorf("falha ao aplicar conta configurada: %w", err)
		}
	}

	txs := services.NewTransactionService(replica, writer, cfg.Contract(), token)
	router := handlers.NewRouter(
		handlers.NewAssetHandler(replica),
		handlers.NewTransactionHandler(txs),
		handlers.NewAccountHandler(replica),
		handlers.NewFeedHandler(replica.Feed()),
	)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	listener := blockchain_listener.NewBlockchainListener(client, replica, db, blockchain_listener.Options{
		StartBlock:    cfg.StartBlock,
		Confirmations: cfg.Confirmations,
		BatchBlocks:   cfg.BatchBlocks,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// uma falha de sincronização fica em GET /status; a API segue no ar
		listener.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("Servidor HTTP rodando em %s...", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("falha no servidor HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.PollInterval * 10)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := db.PruneCheckpoints(cfg.KeepCheckpoints)
				if err != nil {
					log.Printf("Falha ao remover checkpoints antigos: %v", err)
				} else if n > 0 {
					log.Printf("%d checkpoints antigos removidos", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// o último estado aplicado sobrevive ao reinício mesmo sem janela completa
	if _, serr := db.SaveSnapshot(replica.Snapshot()); serr != nil {
		log.Printf("Falha ao gravar snapshot final: %v", serr)
	}
	return err
}

package blockchain_listener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/services"
	"github.com/ferreirogomes/harberger/storage"
)

// Applier é a réplica alimentada pelo listener.
type Applier interface {
	Apply(ctx context.Context, batch []events.Event) (int, error)
	MarkSynced(block uint64)
	SyncedBlock() uint64
	Snapshot() models.Snapshot
	MarkHalted(err error)
}

// SnapshotStore persiste um checkpoint após cada janela aplicada.
type SnapshotStore interface {
	SaveSnapshot(snap models.Snapshot) (storage.Checkpoint, error)
}

// Options controla a varredura.
type Options struct {
	StartBlock    uint64
	Confirmations uint64
	BatchBlocks   uint64
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// BlockchainListener acompanha os logs do contrato e os aplica à réplica,
// em ordem e sem pular eventos.
type BlockchainListener struct {
	Source  ledger.LogSource
	Replica Applier
	Store   SnapshotStore // opcional
	opts    Options
	next    uint64
}

// NewBlockchainListener cria o listener, retomando do último bloco varrido
// pela réplica quando houver.
func NewBlockchainListener(source ledger.LogSource, replica Applier, store SnapshotStore, opts Options) *BlockchainListener {
	if opts.BatchBlocks == 0 {
		opts.BatchBlocks = 1000
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	next := opts.StartBlock
	if synced := replica.SyncedBlock(); synced > 0 && synced+1 > next {
		next = synced + 1
	}
	return &BlockchainListener{Source: source, Replica: replica, Store: store, opts: opts, next: next}
}

// NextBlock é o próximo bloco a varrer.
func (l *BlockchainListener) NextBlock() uint64 { return l.next }

// StartListening varre até o contexto ser cancelado. Retorna nil no
// cancelamento e o erro que interrompeu a sincronização caso contrário.
func (l *BlockchainListener) StartListening(ctx context.Context) error {
	log.Printf("Iniciando listener do ledger a partir do bloco %d...", l.next)
	for {
		if err := l.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("Sincronização interrompida: %v", err)
			return err
		}
		select {
		case <-ctx.Done():
			log.Println("Listener encerrado.")
			return nil
		case <-time.After(l.opts.PollInterval):
		}
	}
}

// Run roda StartListening até o cancelamento. Uma falha que interrompa a
// sincronização é registrada na réplica em vez de encerrar o processo; a
// réplica continua servindo o último estado aplicado.
func (l *BlockchainListener) Run(ctx context.Context) {
	if err := l.StartListening(ctx); err != nil {
		log.Printf("Sincronização parada, servindo o último estado aplicado: %v", err)
		l.Replica.MarkHalted(err)
	}
}

// SyncOnce varre todos os blocos confirmados ainda não processados.
func (l *BlockchainListener) SyncOnce(ctx context.Context) error {
	var head uint64
	err := l.retry(ctx, "ler bloco atual", func() error {
		var err error
		head, err = l.Source.Head(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if head < l.opts.Confirmations {
		return nil
	}
	confirmed := head - l.opts.Confirmations

	for l.next <= confirmed {
		to := l.next + l.opts.BatchBlocks - 1
		if to > confirmed {
			to = confirmed
		}
		if err := l.ProcessRange(ctx, l.next, to); err != nil {
			return err
		}
		l.next = to + 1
	}
	return nil
}

// ProcessRange aplica os eventos dos blocos [from, to] e grava o checkpoint.
func (l *BlockchainListener) ProcessRange(ctx context.Context, from, to uint64) error {
	var raws []events.Raw
	err := l.retry(ctx, fmt.Sprintf("buscar logs %d..%d", from, to), func() error {
		var err error
		raws, err = l.Source.Events(ctx, from, to)
		return err
	})
	if err != nil {
		return err
	}

	batch, err := parseBatch(raws)
	if err != nil {
		return err
	}

	err = l.retry(ctx, fmt.Sprintf("aplicar blocos %d..%d", from, to), func() error {
		n, err := l.Replica.Apply(ctx, batch)
		if n > 0 {
			log.Printf("Aplicados %d eventos dos blocos %d..%d.", n, from, to)
		}
		return err
	})
	if err != nil {
		return err
	}

	l.Replica.MarkSynced(to)
	if l.Store != nil {
		cp, err := l.Store.SaveSnapshot(l.Replica.Snapshot())
		if err != nil {
			return fmt.Errorf("falha ao gravar checkpoint do bloco %d: %w", to, err)
		}
		log.Printf("Checkpoint %s gravado no bloco %d (%d ativos).", cp.ID, to, cp.AssetCount)
	}
	return nil
}

// parseBatch converte e ordena os registros por (bloco, índice do log).
func parseBatch(raws []events.Raw) ([]events.Event, error) {
	batch := make([]events.Event, 0, len(raws))
	for _, raw := range raws {
		ev, err := events.Parse(raw)
		if err != nil {
			return nil, err
		}
		batch = append(batch, ev)
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Pos().Less(batch[j].Pos()) })
	return batch, nil
}

// retry repete fn com espera linear (RetryDelay × tentativa). Falhas de
// consistência não são repetidas: exigem ressincronização.
func (l *BlockchainListener) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= l.opts.RetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if permanent(err) || attempt == l.opts.RetryAttempts {
			break
		}
		wait := l.opts.RetryDelay * time.Duration(attempt)
		log.Printf("Falha ao %s (tentativa %d/%d): %v. Nova tentativa em %s.", what, attempt, l.opts.RetryAttempts, err, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("falha ao %s: %w", what, err)
}

func permanent(err error) bool {
	return errors.Is(err, services.ErrConsistency) ||
		errors.Is(err, services.ErrDuplicateMint) ||
		errors.Is(err, context.Canceled)
}

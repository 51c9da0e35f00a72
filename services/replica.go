package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Fetcher lê um ativo no ledger na altura dada (0 = mais recente).
type Fetcher interface {
	FetchAsset(ctx context.Context, id models.AssetID, block uint64) (models.Asset, error)
}

// Replica mantém a réplica local dos ativos. Todas as escritas passam por
// Apply, que serializa a aplicação dos eventos.
type Replica struct {
	mu      sync.RWMutex
	state   *models.State
	session models.Session
	cursor  *models.Position
	synced  uint64

	fetcher     Fetcher
	concurrency int
	feed        *Feed
	halted      error
}

// NewReplica cria a réplica a partir de um snapshot (nil = estado vazio).
func NewReplica(fetcher Fetcher, snap *models.Snapshot, concurrency int) *Replica {
	if concurrency <= 0 {
		concurrency = 1
	}
	r := &Replica{
		state:       models.NewState(),
		fetcher:     fetcher,
		concurrency: concurrency,
		feed:        NewFeed(0),
	}
	if snap != nil {
		if snap.State != nil {
			r.state = snap.State.Clone()
		}
		r.session = snap.Session
		if snap.Cursor != nil {
			c := *snap.Cursor
			r.cursor = &c
		}
		r.synced = snap.SyncedBlock
	}
	return r
}

// Feed retorna o distribuidor de mudanças aplicadas.
func (r *Replica) Feed() *Feed { return r.feed }

// Apply aplica um lote de eventos e retorna quantos foram aplicados.
//
// Eventos de conta são aplicados primeiro, na ordem recebida. Os eventos do
// ledger são ordenados por posição; os que estão no cursor ou antes dele são
// reentregas e são ignorados. As leituras de ativos distintos correm em
// paralelo, as de um mesmo ativo em sequência, e a fusão é serial na ordem
// dos eventos. No primeiro erro a aplicação para: os eventos anteriores
// permanecem aplicados e o cursor fica no último deles.
func (r *Replica) Apply(ctx context.Context, batch []events.Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	var pending []events.Event
	for _, ev := range batch {
		if events.FromLedger(ev) {
			pending = append(pending, ev)
			continue
		}
		if err := Reduce(r.state, &r.session, ev, nil); err != nil {
			return applied, err
		}
		applied++
	}

	pending = r.fresh(pending)
	if len(pending) == 0 {
		return applied, nil
	}

	recs, errs := r.prefetch(ctx, pending)

	for i, ev := range pending {
		if errs[i] != nil {
			return applied, fmt.Errorf("evento %s em %d/%d: %w", ev.Kind(), ev.Pos().BlockNumber, ev.Pos().LogIndex, errs[i])
		}
		var rec *models.Asset
		if _, ok := NeedsFetch(ev); ok {
			rec = &recs[i]
		}
		if err := Reduce(r.state, &r.session, ev, rec); err != nil {
			return applied, err
		}
		pos := ev.Pos()
		r.cursor = &pos
		applied++

		if rec != nil {
			if a, ok := r.state.Get(rec.ID); ok {
				r.feed.publish(Change{Kind: ev.Kind(), Position: pos, Asset: a})
			}
		}
	}
	return applied, nil
}

// fresh ordena os eventos do ledger e descarta reentregas.
func (r *Replica) fresh(evs []events.Event) []events.Event {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Pos().Less(evs[j].Pos()) })

	out := evs[:0]
	last := r.cursor
	for _, ev := range evs {
		pos := ev.Pos()
		if last != nil && !last.Less(pos) {
			continue
		}
		out = append(out, ev)
		last = &pos
	}
	return out
}

// prefetch lê os registros necessários ao lote. Um erro de leitura num
// ativo interrompe apenas as leituras seguintes daquele ativo.
func (r *Replica) prefetch(ctx context.Context, evs []events.Event) ([]models.Asset, []error) {
	recs := make([]models.Asset, len(evs))
	errs := make([]error, len(evs))

	byAsset := make(map[models.AssetID][]int)
	var order []models.AssetID
	for i, ev := range evs {
		id, ok := NeedsFetch(ev)
		if !ok {
			continue
		}
		if _, seen := byAsset[id]; !seen {
			order = append(order, id)
		}
		byAsset[id] = append(byAsset[id], i)
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, id := range order {
		id, idxs := id, byAsset[id]
		g.Go(func() error {
			for _, i := range idxs {
				rec, err := r.fetcher.FetchAsset(ctx, id, evs[i].Pos().BlockNumber)
				if err != nil {
					errs[i] = err
					return nil
				}
				recs[i] = rec
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(order) > 1 {
		log.Printf("Lidos %d ativos distintos para %d eventos.", len(order), len(evs))
	}
	return recs, errs
}

// MarkSynced registra que todos os blocos até block foram varridos.
func (r *Replica) MarkSynced(block uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if block > r.synced {
		r.synced = block
	}
}

// Snapshot retorna uma cópia independente do estado persistível.
func (r *Replica) Snapshot() models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := models.Snapshot{
		State:       r.state.Clone(),
		Session:     r.session,
		SyncedBlock: r.synced,
	}
	if r.cursor != nil {
		c := *r.cursor
		snap.Cursor = &c
	}
	return snap
}

func (r *Replica) Assets() []models.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Assets()
}

func (r *Replica) Asset(id models.AssetID) (models.Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Get(id)
}

func (r *Replica) OwnedBy(addr common.Address) []models.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.OwnedBy(addr)
}

func (r *Replica) Session() models.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// Cursor retorna a posição do último evento aplicado (nil antes do primeiro).
func (r *Replica) Cursor() *models.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cursor == nil {
		return nil
	}
	c := *r.cursor
	return &c
}

func (r *Replica) SyncedBlock() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}

// MarkHalted registra a falha que parou a sincronização. A réplica segue
// servindo o último estado aplicado.
func (r *Replica) MarkHalted(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.halted = err
}

// Halted retorna a falha que parou a sincronização, ou nil.
func (r *Replica) Halted() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.halted
}

func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Len()
}

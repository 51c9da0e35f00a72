package services

import (
	"fmt"
	"log"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"
)

// NeedsFetch indica se a redução de ev exige o registro do ativo lido no
// ledger e, nesse caso, de qual ativo.
func NeedsFetch(ev events.Event) (models.AssetID, bool) {
	return events.AssetOf(ev)
}

// Reduce aplica um evento ao estado. rec é o registro lido no ledger na
// altura do evento, obrigatório quando NeedsFetch(ev) for verdadeiro.
//
// Em caso de erro st e sess ficam intactos. Reaplicar o mesmo evento com o
// mesmo registro não altera nada.
func Reduce(st *models.State, sess *models.Session, ev events.Event, rec *models.Asset) error {
	if id, ok := NeedsFetch(ev); ok {
		if rec == nil {
			return fmt.Errorf("evento %s do ativo %d sem registro lido no ledger", ev.Kind(), id)
		}
		if rec.ID != id {
			return fmt.Errorf("registro do ativo %d entregue para o evento do ativo %d", rec.ID, id)
		}
	}

	switch e := ev.(type) {
	case *events.AccountContext:
		sess.Account = e.Account
		return nil

	case *events.Transfer:
		switch {
		case e.IsMint():
			return mint(st, *rec)
		case e.IsBurn():
			burned := *rec
			burned.Terminal = true
			return replace(st, ev, burned)
		default:
			return replace(st, ev, *rec)
		}

	case *events.BalanceUpdate:
		updated := *rec
		updated.Expiration = e.Expiration
		return replace(st, ev, updated)

	case *events.PriceUpdate, *events.OwnerURIUpdate, *events.TaxUpdate, *events.MetaURIUpdate:
		return replace(st, ev, *rec)

	case *events.Debug:
		log.Printf("Evento DEBUG em %d/%d: %v", e.Position.BlockNumber, e.Position.LogIndex, e.Values)
		return nil

	default:
		// desconhecido
		return nil
	}
}

// mint insere o ativo. Um registro idêntico já presente é reentrega e não
// altera nada; um id queimado pode ser cunhado de novo.
func mint(st *models.State, rec models.Asset) error {
	existing, ok := st.Get(rec.ID)
	if !ok {
		return st.Insert(rec)
	}
	if existing.Equal(rec) {
		return nil
	}
	if existing.Terminal {
		return st.Replace(rec)
	}
	return fmt.Errorf("%w: %d", ErrDuplicateMint, rec.ID)
}

func replace(st *models.State, ev events.Event, rec models.Asset) error {
	if !st.Has(rec.ID) {
		return &ConsistencyError{AssetID: rec.ID, Kind: ev.Kind(), Position: ev.Pos()}
	}
	return st.Replace(rec)
}

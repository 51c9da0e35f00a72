package models

import "github.com/ethereum/go-ethereum/common"

// Session é o contexto do processo fornecido por eventos de conta
// (a identidade conectada). Não faz parte do estado dos ativos.
type Session struct {
	Account common.Address `json:"account"`
}

// Position ordena os eventos do ledger: bloco e índice do log no bloco.
type Position struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint   `json:"log_index"`
}

// Less indica se p vem antes de o.
func (p Position) Less(o Position) bool {
	if p.BlockNumber != o.BlockNumber {
		return p.BlockNumber < o.BlockNumber
	}
	return p.LogIndex < o.LogIndex
}

// Snapshot é o estado persistido da réplica, suficiente para retomar a
// sincronização sem reprocessar o histórico desde o gênesis.
type Snapshot struct {
	State       *State    `json:"state"`
	Session     Session   `json:"session"`
	Cursor      *Position `json:"cursor,omitempty"` // último evento aplicado; nil antes do primeiro
	SyncedBlock uint64    `json:"synced_block"`     // último bloco inteiramente varrido
}

package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAssetExists   = errors.New("ativo já existe")
	ErrAssetNotFound = errors.New("ativo não encontrado")
)

// State é a coleção de ativos da réplica, indexada por id e ordenada por
// inserção. Nunca contém dois ativos com o mesmo id. Não é segura para uso
// concorrente; quem a hospeda serializa as escritas.
type State struct {
	order []AssetID
	byID  map[AssetID]Asset
}

// NewState cria um estado vazio.
func NewState() *State {
	return &State{byID: make(map[AssetID]Asset)}
}

// NewStateFrom cria um estado com os ativos na ordem dada.
func NewStateFrom(assets []Asset) (*State, error) {
	s := NewState()
	for _, a := range assets {
		if err := s.Insert(a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *State) Len() int { return len(s.order) }

func (s *State) Get(id AssetID) (Asset, bool) {
	a, ok := s.byID[id]
	return a, ok
}

func (s *State) Has(id AssetID) bool {
	_, ok := s.byID[id]
	return ok
}

// Insert acrescenta um ativo novo ao final da coleção.
func (s *State) Insert(a Asset) error {
	if s.byID == nil {
		s.byID = make(map[AssetID]Asset)
	}
	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("%w: %d", ErrAssetExists, a.ID)
	}
	s.order = append(s.order, a.ID)
	s.byID[a.ID] = a
	return nil
}

// Replace substitui o ativo de mesmo id, preservando sua posição.
// Nunca insere: um id ausente é devolvido como ErrAssetNotFound.
func (s *State) Replace(a Asset) error {
	if _, ok := s.byID[a.ID]; !ok {
		return fmt.Errorf("%w: %d", ErrAssetNotFound, a.ID)
	}
	s.byID[a.ID] = a
	return nil
}

// Assets retorna uma cópia dos ativos em ordem de inserção.
func (s *State) Assets() []Asset {
	out := make([]Asset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// OwnedBy retorna os ativos controlados pelo endereço, em ordem de inserção.
func (s *State) OwnedBy(addr common.Address) []Asset {
	var out []Asset
	for _, id := range s.order {
		if a := s.byID[id]; a.OwnedBy(addr) {
			out = append(out, a)
		}
	}
	return out
}

// Clone retorna uma cópia independente.
func (s *State) Clone() *State {
	c := &State{
		order: make([]AssetID, len(s.order)),
		byID:  make(map[AssetID]Asset, len(s.byID)),
	}
	copy(c.order, s.order)
	for k, v := range s.byID {
		c.byID[k] = v
	}
	return c
}

// Equal compara ordem e conteúdo.
func (s *State) Equal(o *State) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i, id := range s.order {
		if o.order[i] != id || !s.byID[id].Equal(o.byID[id]) {
			return false
		}
	}
	return true
}

type stateJSON struct {
	Assets []Asset `json:"assets"`
}

// MarshalJSON grava o registro plano {"assets": [...]} em ordem de inserção.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{Assets: s.Assets()})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := NewStateFrom(raw.Assets)
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}

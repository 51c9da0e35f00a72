package services

import (
	"log"
	"sync"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"
)

// Change é um registro de ativo aplicado pela réplica.
type Change struct {
	Kind     events.Kind     `json:"kind"`
	Position models.Position `json:"position"`
	Asset    models.Asset    `json:"asset"`
}

// Feed distribui as mudanças da réplica aos assinantes. Um assinante com o
// buffer cheio é desligado; a réplica nunca espera por ele.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan Change]struct{}
	buffer int
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{subs: make(map[chan Change]struct{}), buffer: buffer}
}

// Subscribe retorna o canal de mudanças e a função que cancela a assinatura.
// O canal é fechado no cancelamento ou quando o assinante é desligado.
func (f *Feed) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, f.buffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
}

func (f *Feed) publish(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- c:
		default:
			log.Printf("Assinante do feed lento; desligando.")
			delete(f.subs, ch)
			close(ch)
		}
	}
}

// Subscribers retorna o número de assinantes ativos.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

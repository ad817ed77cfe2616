package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
)

// SchemaVersion se incrementa cuando cambia el significado de los puntos
// frozen; las entradas de otra versión se tratan como ausentes.
const SchemaVersion = 3

type memEntry struct {
	history domain.FrozenHistory
	version int
}

// MemoryStore implementa ports.FrozenStore en memoria, compartido entre
// goroutines detrás de un mutex.
type MemoryStore struct {
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemoryStore crea un store vacío. maxAge <= 0 desactiva la caducidad.
func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxAge:  maxAge,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]memEntry),
	}
}

// Load devuelve una copia de la historia guardada o ports.ErrCacheMiss.
func (m *MemoryStore) Load(_ context.Context, ticker string, params domain.FrozenParams) (domain.FrozenHistory, error) {
	key := cacheKey(ticker, params)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.version != SchemaVersion {
		return domain.FrozenHistory{}, ports.ErrCacheMiss
	}
	if m.maxAge > 0 && m.now().Sub(e.history.ComputedAt) > m.maxAge {
		delete(m.entries, key)
		return domain.FrozenHistory{}, ports.ErrCacheMiss
	}
	return cloneHistory(e.history), nil
}

// Save guarda una copia de h.
func (m *MemoryStore) Save(_ context.Context, h domain.FrozenHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(h.Ticker, h.Params)] = memEntry{history: cloneHistory(h), version: SchemaVersion}
	return nil
}

// Len devuelve el número de historias guardadas.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close no hace nada; existe para cumplir ports.FrozenStore.
func (m *MemoryStore) Close() error { return nil }

// paramsKey serializa los params de forma estable.
func paramsKey(p domain.FrozenParams) string {
	return fmt.Sprintf("a=%g|b=%g|span=%d|lag=%d|min=%d|stride=%d|lb=%d|gh=%d",
		p.Action.Alpha, p.Action.Beta, p.Action.EMASpan,
		p.Lag, p.MinPoints, p.Stride, p.Lookback, p.GhostHorizon)
}

func cacheKey(ticker string, p domain.FrozenParams) string {
	return ticker + "#" + paramsKey(p)
}

func cloneHistory(h domain.FrozenHistory) domain.FrozenHistory {
	h.Points = append([]domain.FrozenPoint(nil), h.Points...)
	return h
}

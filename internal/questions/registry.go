package questions

import (
	"sort"
	"sync"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/engine"
)

// Registry maps game types to their question sources. Adding a mode only needs a Register call.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.GameType]engine.QuestionSource
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[domain.GameType]engine.QuestionSource)}
}

// Register binds a source to a game type, replacing any previous binding.
func (r *Registry) Register(gameType domain.GameType, source engine.QuestionSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[gameType] = source
}

func (r *Registry) Source(gameType domain.GameType) (engine.QuestionSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[gameType]
	return source, ok
}

// GameTypes lists the registered game types in name order.
func (r *Registry) GameTypes() []domain.GameType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.GameType, 0, len(r.sources))
	for gameType := range r.sources {
		out = append(out, gameType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

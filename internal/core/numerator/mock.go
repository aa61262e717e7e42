package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SequenceGenerator is an in-memory Generator for unit tests and the seed tool.
// Every (prefix, period) key counts independently from 1.
type SequenceGenerator struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewSequenceGenerator creates an empty in-memory generator.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{values: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (g *SequenceGenerator) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := cfg.Key(period)
	g.values[key]++
	return cfg.Format(period, g.values[key]), nil
}

// SetNextNumber implements Generator.
func (g *SequenceGenerator) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	if value < 0 {
		return fmt.Errorf("sequence value must not be negative: %d", value)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[cfg.Key(period)] = value
	return nil
}

var _ Generator = (*SequenceGenerator)(nil)

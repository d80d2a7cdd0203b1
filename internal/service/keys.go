package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator issues device-local entry keys.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 keys. Safe for concurrent use.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns prefix-1, prefix-2, ... so tests and golden
// output see stable keys.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

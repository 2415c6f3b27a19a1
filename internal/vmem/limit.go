package vmem

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

// Limited caps the number of page units a Mapper may have mapped at once.
// It models address-space exhaustion for tests and for capped deployments.
type Limited struct {
	m        Mapper
	maxPages int

	mu    sync.Mutex
	pages int
}

// Limit wraps m so that at most maxPages page units are mapped at any time.
func Limit(m Mapper, maxPages int) *Limited {
	return &Limited{m: m, maxPages: maxPages}
}

// Map forwards to the wrapped mapper unless the cap would be exceeded.
func (l *Limited) Map(size int) ([]byte, error) {
	if err := checkLength(size); err != nil {
		return nil, err
	}
	need := size / format.PageUnit

	l.mu.Lock()
	if l.pages+need > l.maxPages {
		have := l.pages
		l.mu.Unlock()
		return nil, errors.Wrapf(ErrExhausted, "limit %d pages, mapped %d, requested %d", l.maxPages, have, need)
	}
	l.pages += need
	l.mu.Unlock()

	b, err := l.m.Map(size)
	if err != nil {
		l.mu.Lock()
		l.pages -= need
		l.mu.Unlock()
		return nil, err
	}
	return b, nil
}

// Unmap forwards to the wrapped mapper and returns the pages to the budget.
func (l *Limited) Unmap(b []byte) error {
	if err := l.m.Unmap(b); err != nil {
		return err
	}
	l.mu.Lock()
	l.pages -= len(b) / format.PageUnit
	l.mu.Unlock()
	return nil
}

// Pages returns the number of page units currently mapped through l.
func (l *Limited) Pages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages
}

package stock

import (
	"sort"
	"sync"
)

// productLocks hands out one mutex per product name so that the read-check-write of a
// stock movement is serialized per product while other products proceed in parallel.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*productLock)}
}

// Lock blocks until the product is free and returns the matching unlock func.
func (p *productLocks) Lock(product string) func() {
	p.mu.Lock()
	l, ok := p.locks[product]
	if !ok {
		l = &productLock{}
		p.locks[product] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, product)
		}
		p.mu.Unlock()
	}
}

// LockAll locks several products in a stable order so two callers with overlapping
// sets cannot deadlock.
func (p *productLocks) LockAll(products []string) func() {
	sorted := make([]string, 0, len(products))
	seen := make(map[string]struct{}, len(products))
	for _, product := range products {
		if _, ok := seen[product]; ok {
			continue
		}
		seen[product] = struct{}{}
		sorted = append(sorted, product)
	}
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for _, product := range sorted {
		unlocks = append(unlocks, p.Lock(product))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// size is the number of products currently locked or waited on.
func (p *productLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

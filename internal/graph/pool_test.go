// SPDX-License-Identifier: MIT
package graph

import (
	"sync"
	"testing"
)

func TestBufferPoolRentReturnRecycles(t *testing.T) {
	p := NewBufferPool()
	b := p.Rent(2)
	b.Chan(0)[0] = 42
	b.MarkNonSilent()
	p.Return(b)

	b2 := p.Rent(2)
	if !b2.Silent {
		t.Fatal("recycled block must come back silent")
	}
	if b2.Chan(0)[0] != 0 {
		t.Fatal("recycled block must come back zeroed")
	}
}

func TestBufferPoolRentPanicsOutOfRange(t *testing.T) {
	p := NewBufferPool()
	defer func() {
		if recover() == nil {
			t.Fatal("Rent(0) must panic")
		}
	}()
	p.Rent(0)
}

func TestBufferPoolStatsConservation(t *testing.T) {
	p := NewBufferPool()
	for i := 0; i < 5; i++ {
		p.Return(p.Rent(1))
	}
	stats := p.Stats()
	if stats.Rents != 5 || stats.Returns != 5 || stats.Outstanding != 0 {
		t.Fatalf("stats = %+v, want 5 rents, 5 returns, 0 outstanding", stats)
	}
}

func TestBufferPoolConcurrentRentReturn(t *testing.T) {
	p := NewBufferPool()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				p.Return(p.Rent(2))
			}
		}()
	}
	wg.Wait()
	stats := p.Stats()
	if stats.Outstanding != 0 {
		t.Fatalf("outstanding = %d, want 0 after balanced concurrent rent/return", stats.Outstanding)
	}
}

func TestBufferPoolScratchRoundTrip(t *testing.T) {
	p := NewBufferPool()
	s := p.RentScratch(2)
	if len(s) != 2*FramesPerBlock {
		t.Fatalf("len(scratch) = %d, want %d", len(s), 2*FramesPerBlock)
	}
	s[0] = 7
	p.ReturnScratch(2, s)

	s2 := p.RentScratch(2)
	if s2[0] != 0 {
		t.Fatal("recycled scratch buffer must come back zeroed")
	}
}

func TestBufferPoolPrewarmAvoidsAllocationUnderCapacity(t *testing.T) {
	p := NewBufferPool()
	p.Prewarm(2, 4)
	allocs := testing.AllocsPerRun(10, func() {
		p.Return(p.Rent(2))
	})
	if allocs != 0 {
		t.Fatalf("allocs per rent/return after prewarm = %v, want 0", allocs)
	}
}

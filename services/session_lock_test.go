package services

import (
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestSessionLocks(t *testing.T) {
	locks := NewSessionLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("s1")
			defer unlock()

			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	gt.B(t, overlap).False()
	gt.V(t, locks.inFlight()).Equal(0)
}

func TestSessionLocks_IndependentSessions(t *testing.T) {
	locks := NewSessionLocks()

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	gt.V(t, locks.inFlight()).Equal(2)

	unlockA()
	unlockB()
	gt.V(t, locks.inFlight()).Equal(0)
}

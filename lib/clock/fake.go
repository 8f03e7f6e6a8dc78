// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.sleepersChanged = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for tests. Sleep and After
// register waiters that fire when Advance moves the clock past their
// deadline.
type FakeClock struct {
	mu              sync.Mutex
	current         time.Time
	sleepers        []*fakeSleeper
	sleepersChanged *sync.Cond
}

// fakeSleeper is a pending Sleep or After waiter.
type fakeSleeper struct {
	deadline time.Time
	channel  chan time.Time
	fired    bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep blocks until Advance moves the clock past the deadline. A
// non-positive duration returns immediately.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// After returns a channel that receives once Advance moves the clock
// past the deadline. A non-positive duration delivers immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	channel := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.sleepers = append(c.sleepers, &fakeSleeper{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.sleepersChanged.Broadcast()
	return channel
}

// Advance moves the clock forward by d, releasing every waiter whose
// deadline is reached, in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)

	sort.SliceStable(c.sleepers, func(i, j int) bool {
		return c.sleepers[i].deadline.Before(c.sleepers[j].deadline)
	})
	remaining := c.sleepers[:0]
	for _, sleeper := range c.sleepers {
		if sleeper.fired || !sleeper.deadline.After(c.current) {
			sleeper.channel <- sleeper.deadline
			sleeper.fired = true
			continue
		}
		remaining = append(remaining, sleeper)
	}
	c.sleepers = remaining
	c.sleepersChanged.Broadcast()
}

// WaitForSleepers blocks until at least n waiters are pending. Use it
// to synchronize with a polling goroutine before calling Advance.
func (c *FakeClock) WaitForSleepers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.sleepers) < n {
		c.sleepersChanged.Wait()
	}
}

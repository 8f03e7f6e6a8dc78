// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for the
// store's polling loops and staleness checks.
//
// Production code accepts a Clock instead of calling time.Now or
// time.Sleep directly. Real() is the standard library behavior.
// Fake() is a deterministic clock for tests: time stands still until
// Advance is called, and goroutines blocked in Sleep or on After
// channels are released when the clock passes their deadline.
//
// A test driving a polling goroutine synchronizes with it through
// WaitForSleepers before advancing:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go poll(c)
//	c.WaitForSleepers(1)
//	c.Advance(time.Second)
package clock

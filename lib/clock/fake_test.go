// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)

	ch := c.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	fired := <-ch
	if !fired.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("fired at %v, want %v", fired, epoch.Add(5*time.Second))
	}
}

func TestFakeAfterZeroFiresImmediately(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
	if c.PendingTimers() != 0 {
		t.Errorf("After(0) registered a waiter")
	}
}

func TestFakeSleepBlocksUntilAdvance(t *testing.T) {
	c := Fake(epoch)

	done := make(chan struct{})
	go func() {
		c.Sleep(time.Minute)
		close(done)
	}()

	c.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	c.Advance(time.Minute)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeAdvanceFiresMultipleWaitersInOrder(t *testing.T) {
	c := Fake(epoch)
	first := c.After(time.Second)
	second := c.After(2 * time.Second)

	c.Advance(3 * time.Second)

	firstFired := <-first
	secondFired := <-second
	if !firstFired.Before(secondFired) {
		t.Errorf("waiters fired out of order: %v, %v", firstFired, secondFired)
	}
	if c.PendingTimers() != 0 {
		t.Errorf("waiters remain after Advance: %d", c.PendingTimers())
	}
}

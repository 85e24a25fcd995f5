// Package nxtest is a small test harness in the Given/When/Then shape
// original_source's own test suite uses throughout
// subprojects/tests/source/sync (see e.g. test_0001_mutex_lock_unlock_
// single_thread.c's "//* Given" / "//* When" / "//* Then" sections),
// adapted to the standard testing package: each scenario runs as a
// t.Run subtest and reports failures through its *testing.T rather
// than a C-style Result code.
package nxtest

import (
	"testing"
	"time"
)

// Scenario is one Given/When/Then test case, mirroring the shape of
// original_source's numbered test functions.
type Scenario struct {
	Name  string
	Given func(t *testing.T)
	When  func(t *testing.T)
	Then  func(t *testing.T)
}

// Run executes s's Given, When and Then phases, in that order, inside
// one subtest of t named s.Name. Any phase left nil is skipped.
func (s Scenario) Run(t *testing.T) {
	t.Run(s.Name, func(t *testing.T) {
		if s.Given != nil {
			s.Given(t)
		}
		if s.When != nil {
			s.When(t)
		}
		if s.Then != nil {
			s.Then(t)
		}
	})
}

// RunAll runs each scenario in order as a subtest of t.
func RunAll(t *testing.T, scenarios []Scenario) {
	for _, s := range scenarios {
		s.Run(t)
	}
}

// EventuallyTrue polls cond every interval until it returns true or
// timeout elapses, returning the final observed value. It replaces the
// fixed-sleep-then-assert pattern original_source's threadSleepMs-based
// tests rely on with something that doesn't flake under load, while
// still converging in roughly the same wall-clock time on a healthy
// system.
func EventuallyTrue(timeout, interval time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return cond()
		}
		time.Sleep(interval)
	}
}

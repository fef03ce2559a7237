package progressui

import "testing"

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }

func TestDisabledBarIsANoOp(t *testing.T) {
	b := New(false, 100)
	// None of these must panic or write anything observable; a disabled
	// bar exists only so callers never branch on whether progress is on.
	b.Set(50)
	b.Describe(stringerFunc(func() string { return "hashing" }))
	b.Finish(stringerFunc(func() string { return "done" }))
}

func TestEnabledDeterminateBarAcceptsUpdates(t *testing.T) {
	b := New(true, 10)
	b.Set(3)
	b.Describe(stringerFunc(func() string { return "quick-hashing" }))
	b.Finish(stringerFunc(func() string { return "10 files" }))
}

func TestEnabledSpinnerModeAcceptsUpdates(t *testing.T) {
	b := New(true, -1)
	b.Set(7)
	b.Describe(stringerFunc(func() string { return "scanning" }))
	b.Finish(stringerFunc(func() string { return "scan complete" }))
}

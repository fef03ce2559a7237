package cancel

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestFlagSetIsIdempotent(t *testing.T) {
	f := New()
	if f.IsSet() {
		t.Fatal("new flag must start unset")
	}
	f.Set()
	f.Set()
	if !f.IsSet() {
		t.Fatal("flag should be set after Set")
	}
}

func TestWatchInterruptSetsFlagOnSignal(t *testing.T) {
	f := New()
	stop := WatchInterrupt(f)
	defer stop()

	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for !f.IsSet() {
		if time.Now().After(deadline) {
			t.Fatal("flag was not set after SIGINT within deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWatchInterruptStopDisarmsHandler(t *testing.T) {
	f := New()
	stop := WatchInterrupt(f)
	stop()

	if f.IsSet() {
		t.Fatal("stopping the watch must not itself set the flag")
	}
}

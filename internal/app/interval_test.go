package app

import (
	"sync"
	"testing"
	"time"
)

func TestFlushInterval_GetSet(t *testing.T) {
	f := NewFlushInterval(DefaultFlushInterval)
	if got := f.Get(); got != DefaultFlushInterval {
		t.Fatalf("Get() = %v, want %v", got, DefaultFlushInterval)
	}

	prev := f.Set(5 * time.Second)
	if prev != DefaultFlushInterval {
		t.Errorf("Set() previous = %v, want %v", prev, DefaultFlushInterval)
	}
	if got := f.Get(); got != 5*time.Second {
		t.Errorf("Get() = %v, want 5s", got)
	}
}

func TestFlushInterval_NegativeClampsToZero(t *testing.T) {
	f := NewFlushInterval(-time.Second)
	if got := f.Get(); got != 0 {
		t.Errorf("Get() = %v, want 0", got)
	}
	f.Set(-5 * time.Second)
	if got := f.Get(); got != 0 {
		t.Errorf("Get() after negative Set = %v, want 0", got)
	}
}

func TestFlushInterval_Concurrency(t *testing.T) {
	f := NewFlushInterval(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.Set(time.Duration(i*j) * time.Millisecond)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if f.Get() < 0 {
					t.Error("negative interval observed")
				}
			}
		}()
	}
	wg.Wait()
}

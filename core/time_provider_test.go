package core

import (
	"sync"
	"testing"
	"time"
)

func TestMonotonicTimeProviderAdvances(t *testing.T) {
	provider := NewMonotonicTimeProvider()
	a := provider.Now()
	time.Sleep(time.Millisecond)
	b := provider.Now()
	if !b.After(a) {
		t.Errorf("time did not advance: %v then %v", a, b)
	}
}

func TestMockTimeProvider(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock := NewMockTimeProvider(start)

	if got := mock.Now(); !got.Equal(start) {
		t.Errorf("got %v, want %v", got, start)
	}

	mock.Advance(250 * time.Millisecond)
	if got := mock.Now(); !got.Equal(start.Add(250 * time.Millisecond)) {
		t.Errorf("after advance: got %v", got)
	}

	later := start.Add(time.Hour)
	mock.SetTime(later)
	if got := mock.Now(); !got.Equal(later) {
		t.Errorf("after set: got %v", got)
	}
}

func TestMockTimeProviderConcurrentAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock := NewMockTimeProvider(start)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				mock.Advance(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	expected := start.Add(250 * time.Millisecond)
	if now := mock.Now(); !now.Equal(expected) {
		t.Errorf("expected %v after concurrent advances, got %v", expected, now)
	}
}

func TestTimeProviderInterface(t *testing.T) {
	var _ TimeProvider = &MonotonicTimeProvider{}
	var _ TimeProvider = &MockTimeProvider{}
}

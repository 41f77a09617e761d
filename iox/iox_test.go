package iox

import (
	"errors"
	"testing"
)

type spyCloser struct{ closed bool }

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDiscardErr(t *testing.T) {
	called := false
	DiscardErr(func() error {
		called = true
		return errors.New("ignored")
	})
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestOnceCloser(t *testing.T) {
	calls := 0
	want := errors.New("boom")
	c := NewOnceCloser(func() error {
		calls++
		return want
	})

	for range 3 {
		if err := c.Close(); !errors.Is(err, want) {
			t.Errorf("Close() = %v, want %v", err, want)
		}
	}
	if calls != 1 {
		t.Errorf("close fn called %d times, want 1", calls)
	}
}

type orderCloser struct {
	id    int
	order *[]int
	err   error
}

func (o orderCloser) Close() error {
	*o.order = append(*o.order, o.id)
	return o.err
}

func TestCloseAll(t *testing.T) {
	var order []int
	errA := errors.New("a")
	errB := errors.New("b")

	err := CloseAll(
		orderCloser{id: 1, order: &order, err: errA},
		nil,
		orderCloser{id: 2, order: &order, err: errB},
	)
	if !errors.Is(err, errB) {
		t.Errorf("CloseAll() = %v, want first error in close order (b)", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
}

package offload

import (
	"errors"
	"testing"
)

func TestMailbox_PostTake(t *testing.T) {
	m := NewMailbox()

	if _, ok := m.Take(); ok {
		t.Fatal("Take() on empty mailbox returned a snapshot")
	}

	replaced, err := m.Post(Snapshot{Seq: 1})
	if err != nil || replaced {
		t.Fatalf("Post() = %v, %v", replaced, err)
	}
	select {
	case <-m.Ready():
	default:
		t.Fatal("Ready() not signalled after Post")
	}

	s, ok := m.Take()
	if !ok || s.Seq != 1 {
		t.Fatalf("Take() = %+v, %v", s, ok)
	}
	if _, ok := m.Take(); ok {
		t.Error("snapshot taken twice")
	}
}

func TestMailbox_Coalesces(t *testing.T) {
	m := NewMailbox()
	for seq := uint64(1); seq <= 5; seq++ {
		replaced, err := m.Post(Snapshot{Seq: seq})
		if err != nil {
			t.Fatalf("Post() failed: %v", err)
		}
		if replaced != (seq > 1) {
			t.Errorf("Post(%d) replaced = %v", seq, replaced)
		}
	}

	s, ok := m.Take()
	if !ok || s.Seq != 5 {
		t.Fatalf("Take() = %+v, want the freshest snapshot", s)
	}
	if m.Dropped() != 4 {
		t.Errorf("Dropped() = %d, want 4", m.Dropped())
	}
}

func TestMailbox_Close(t *testing.T) {
	m := NewMailbox()
	m.Post(Snapshot{Seq: 7})
	m.Close()
	m.Close()

	if _, err := m.Post(Snapshot{Seq: 8}); !errors.Is(err, ErrMailboxClosed) {
		t.Errorf("Post() after Close: err = %v", err)
	}
	if m.Drained() {
		t.Error("Drained() with a pending snapshot")
	}
	if s, ok := m.Take(); !ok || s.Seq != 7 {
		t.Fatalf("pending snapshot lost on Close: %+v", s)
	}
	if !m.Drained() {
		t.Error("Drained() = false after taking the last snapshot")
	}
}

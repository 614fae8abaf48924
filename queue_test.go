package qrs

import (
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewPeakQueue(4, OverflowOverwrite)

	for i := uint64(1); i <= 3; i++ {
		if !q.Push(i) {
			t.Errorf("Push %d rejected on non-full queue", i)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Expected length 3, got %d", q.Len())
	}

	for i := uint64(1); i <= 3; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Errorf("Pop: expected (%d, true), got (%d, %v)", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should return false")
	}
}

func TestQueueOverwritePolicy(t *testing.T) {
	q := NewPeakQueue(3, OverflowOverwrite)

	for i := uint64(1); i <= 5; i++ {
		if !q.Push(i) {
			t.Errorf("Overwrite policy must always accept, rejected %d", i)
		}
	}

	// 覆盖策略丢最旧的，留下 3 4 5
	got := q.Drain()
	expected := []uint64{3, 4, 5}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Drain[%d]: expected %d, got %d", i, expected[i], got[i])
		}
	}
	if q.Dropped() != 0 {
		t.Errorf("Overwrite policy must not count drops, got %d", q.Dropped())
	}
}

func TestQueueRejectPolicy(t *testing.T) {
	q := NewPeakQueue(3, OverflowReject)

	for i := uint64(1); i <= 3; i++ {
		q.Push(i)
	}
	if q.Push(4) {
		t.Error("Push on full queue with reject policy should return false")
	}
	if q.Push(5) {
		t.Error("Push on full queue with reject policy should return false")
	}

	// 拒绝策略留最旧的，丢新来的
	got := q.Drain()
	expected := []uint64{1, 2, 3}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Drain[%d]: expected %d, got %d", i, expected[i], got[i])
		}
	}
	if q.Dropped() != 2 {
		t.Errorf("Expected 2 dropped entries, got %d", q.Dropped())
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := NewPeakQueue(3, OverflowOverwrite)

	q.Push(1)
	q.Push(2)
	q.Pop()
	q.Push(3)
	q.Push(4) // 环形回绕

	got := q.Drain()
	expected := []uint64{2, 3, 4}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Drain[%d]: expected %d, got %d", i, expected[i], got[i])
		}
	}
}

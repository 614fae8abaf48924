package qrs

import (
	"testing"
)

func TestWindowAppendPhase(t *testing.T) {
	w := NewSampleWindow(4)

	for i := 0; i < 4; i++ {
		cursor := w.Push(float64(i + 1))
		if cursor != i {
			t.Errorf("Push %d: expected cursor %d, got %d", i, i, cursor)
		}
	}

	if !w.Full() {
		t.Error("Expected window to be full after 4 pushes")
	}
	if w.Len() != 4 {
		t.Errorf("Expected length 4, got %d", w.Len())
	}
}

func TestWindowShiftPhase(t *testing.T) {
	w := NewSampleWindow(4)
	for i := 0; i < 4; i++ {
		w.Push(float64(i + 1))
	}

	// 满窗之后游标固定在 N-1，所有序列同步左移
	cursor := w.Push(5)
	if cursor != 3 {
		t.Errorf("Expected cursor pinned at 3, got %d", cursor)
	}

	expected := []float64{2, 3, 4, 5}
	for i, v := range expected {
		if w.signal[i] != v {
			t.Errorf("signal[%d]: expected %f, got %f", i, v, w.signal[i])
		}
	}
	if w.Len() != 4 {
		t.Errorf("Length should stay 4 after shift, got %d", w.Len())
	}
}

func TestWindowShiftsAllLanes(t *testing.T) {
	w := NewSampleWindow(3)
	for i := 0; i < 3; i++ {
		w.Push(float64(i))
		w.integral[i] = float64(10 + i)
		w.highpass[i] = float64(20 + i)
		w.output[i] = i == 0
	}

	w.Push(99)

	// 八条序列必须一起移位，否则索引空间错位
	if w.integral[0] != 11 || w.integral[1] != 12 {
		t.Errorf("integral lane did not shift: %v", w.integral)
	}
	if w.highpass[0] != 21 || w.highpass[1] != 22 {
		t.Errorf("highpass lane did not shift: %v", w.highpass)
	}
	if w.output[0] != false || w.output[2] != false {
		t.Errorf("output lane did not shift: %v", w.output)
	}
	if w.signal[2] != 99 {
		t.Errorf("new sample not at cursor: %v", w.signal)
	}
}

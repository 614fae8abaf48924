package qrs

import (
	"testing"
)

func sampleState() FilterState {
	fs := FilterState{
		RRAvg1: 100,
		RRAvg2: 98,
		RRLow:  90,
		RRHigh: 113,
		RRMiss: 162,

		PeakI:       1234.5,
		PeakF:       67.8,
		ThresholdI1: 400,
		ThresholdI2: 200,
		ThresholdF1: 40,
		ThresholdF2: 20,
		SPKI:        1500,
		SPKF:        80,
		NPKI:        100,
		NPKF:        10,
	}
	for i := 0; i < 8; i++ {
		fs.RR1[i] = 95 + i
		fs.RR2[i] = 100 - i
	}
	return fs
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := newTestDetector(t)

	want := sampleState()
	d.Restore(want)

	got := d.Snapshot()
	if got != want {
		t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestRestoreOverwritesEverything(t *testing.T) {
	d := newTestDetector(t)
	d.Restore(sampleState())

	// 用零值快照完整回滚
	d.Restore(FilterState{})
	if got := d.Snapshot(); got != (FilterState{}) {
		t.Errorf("Expected zero state after restore, got %+v", got)
	}
}

func TestSaveLoadSlot(t *testing.T) {
	d := newTestDetector(t)

	want := sampleState()
	d.Restore(want)
	d.SaveState()

	// 弄脏当前状态再从槽位恢复
	d.Restore(FilterState{})
	d.LoadState()

	if got := d.Snapshot(); got != want {
		t.Errorf("LoadState mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestExportSetSavedState(t *testing.T) {
	d := newTestDetector(t)
	want := sampleState()
	d.Restore(want)
	d.SaveState()

	var exported FilterState
	d.ExportSavedState(&exported)
	if exported != want {
		t.Errorf("Export mismatch:\nwant %+v\ngot  %+v", want, exported)
	}

	// 导出的状态可以注入另一个检测器实例
	d2 := newTestDetector(t)
	d2.SetSavedState(&exported)
	d2.LoadState()
	if got := d2.Snapshot(); got != want {
		t.Errorf("Cross-instance restore mismatch:\nwant %+v\ngot  %+v", want, got)
	}

	// nil 保护
	d2.ExportSavedState(nil)
	d2.SetSavedState(nil)
}

func TestSnapshotIsACopy(t *testing.T) {
	d := newTestDetector(t)
	d.Restore(sampleState())

	snap := d.Snapshot()
	snap.SPKI = -1
	snap.RR1[0] = -1

	if got := d.Snapshot(); got.SPKI == -1 || got.RR1[0] == -1 {
		t.Error("Mutating a snapshot must not affect the detector")
	}
}

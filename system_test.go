package qrs

import (
	"path/filepath"
	"testing"
	"time"

	"qrs/Filters"
)

// 校准分流器: 用带有清晰包络的信号喂满估算器之后，
// 检测器阈值应被预置，分流器应把自己从调试器链上摘除
func TestCalibrationTapPrimesThresholds(t *testing.T) {
	s := NewECGSystem()
	d, err := NewDetector(s.cfg)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	s.detector = d
	s.primerI = Filters.NewThresholdPrimer(1.0, 250)
	s.primerF = Filters.NewThresholdPrimer(1.0, 250)

	tap := &calibrationTap{system: s, inner: &NoOpDebugger{}}
	d.SetDebugger(tap)

	// 底噪 1.0，每 20 个样本一个高度 100 的包络峰
	for i := 1; i <= 500; i++ {
		v := 1.0
		if i%20 == 0 {
			v = 100.0
		}
		tap.Record(0, v, v, 0, 0, false)
	}

	if !s.calibrated {
		t.Fatal("Calibration should have completed")
	}

	// spk=100, npk=1: threshold1 = 1 + 0.25*99 = 25.75
	snap := d.Snapshot()
	if snap.ThresholdI1 != 25.75 {
		t.Errorf("ThresholdI1: expected 25.75, got %f", snap.ThresholdI1)
	}
	if snap.ThresholdF1 != 25.75 {
		t.Errorf("ThresholdF1: expected 25.75, got %f", snap.ThresholdF1)
	}
	if s.primerI != nil || s.primerF != nil {
		t.Error("Primers should be released after calibration")
	}
}

// 平坦的包络给不出估计: 校准结束但阈值保持零值自适应预热
func TestCalibrationTapFlatEnvelope(t *testing.T) {
	s := NewECGSystem()
	d, err := NewDetector(s.cfg)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	s.detector = d
	s.primerI = Filters.NewThresholdPrimer(1.0, 250)
	s.primerF = Filters.NewThresholdPrimer(1.0, 250)

	tap := &calibrationTap{system: s, inner: &NoOpDebugger{}}
	d.SetDebugger(tap)

	for i := 0; i < 500; i++ {
		tap.Record(0, 1.0, 1.0, 0, 0, false)
	}

	if !s.calibrated {
		t.Fatal("Calibration should have completed even without a usable envelope")
	}
	snap := d.Snapshot()
	if snap.ThresholdI1 != 0 || snap.ThresholdF1 != 0 {
		t.Errorf("Thresholds must stay zero, got i1=%f f1=%f", snap.ThresholdI1, snap.ThresholdF1)
	}
}

type closeCountingDebugger struct {
	closes int
}

func (c *closeCountingDebugger) Record(raw, bandpass, integral, thresholdI, thresholdF float64, isPeak bool) {
}

func (c *closeCountingDebugger) Close() {
	c.closes++
}

// 回放到文件末尾: 回放循环只通知 Done，排空和关闭统一由 Stop 完成，
// 调试器必须在 Stop 里被关闭落盘
func TestReplayEOFSignalsDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.wav")
	w, err := NewRecordingWriter(path, 250)
	if err != nil {
		t.Fatalf("NewRecordingWriter failed: %v", err)
	}
	if err := w.WriteSamples(make([]float64, 10)); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s := NewECGSystem()
	s.reader, err = NewRecordingReader(path)
	if err != nil {
		t.Fatalf("NewRecordingReader failed: %v", err)
	}
	d, err := NewDetector(s.cfg)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	s.detector = d
	dbg := &closeCountingDebugger{}
	d.SetDebugger(dbg)
	s.monitor = NewPowerlineMonitor(float64(s.cfg.Sampling.FS), s.cfg, nil)

	go s.runReplayLoop()

	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("Replay EOF did not signal Done")
	}

	s.Stop()
	if dbg.closes == 0 {
		t.Error("Stop after replay EOF must close the stage debugger")
	}
}

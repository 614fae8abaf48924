package qrs

import (
	"math"
	"path/filepath"
	"testing"
)

func TestRecordingRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecg.wav")

	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*float64(i)/100)
	}

	w, err := NewRecordingWriter(path, 250)
	if err != nil {
		t.Fatalf("NewRecordingWriter failed: %v", err)
	}
	if err := w.WriteSamples(samples); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewRecordingReader(path)
	if err != nil {
		t.Fatalf("NewRecordingReader failed: %v", err)
	}
	defer r.Close()

	if r.SampleRate != 250 {
		t.Errorf("Expected sample rate 250, got %d", r.SampleRate)
	}
	if r.Channels != 1 {
		t.Errorf("Expected mono, got %d channels", r.Channels)
	}

	got, err := r.ReadSamples(1000)
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	if len(got) != 1000 {
		t.Fatalf("Expected 1000 samples, got %d", len(got))
	}

	// 16-bit 量化误差上限约 1/32767
	for i := range got {
		if math.Abs(got[i]-samples[i]) > 1e-3 {
			t.Fatalf("Sample %d: expected %f, got %f", i, samples[i], got[i])
		}
	}
}

func TestRecordingWriterClipping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")

	w, err := NewRecordingWriter(path, 250)
	if err != nil {
		t.Fatalf("NewRecordingWriter failed: %v", err)
	}
	if err := w.WriteSamples([]float64{2.0, -2.0}); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}
	w.Close()

	r, err := NewRecordingReader(path)
	if err != nil {
		t.Fatalf("NewRecordingReader failed: %v", err)
	}
	defer r.Close()

	got, err := r.ReadSamples(2)
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	if got[0] < 0.99 || got[1] > -0.99 {
		t.Errorf("Expected clipped values near +-1, got %v", got)
	}
}

func TestRecordingReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")

	w, err := NewRecordingWriter(path, 250)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	// 合法的空文件可以打开
	r, err := NewRecordingReader(path)
	if err != nil {
		t.Fatalf("Empty but valid recording should open: %v", err)
	}
	r.Close()

	if _, err := NewRecordingReader(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

package qrs

import (
	"bytes"
	"testing"
)

// MockSerialPort 模拟串口
type MockSerialPort struct {
	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer
	Closed      bool
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		ReadBuffer:  new(bytes.Buffer),
		WriteBuffer: new(bytes.Buffer),
	}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	return m.ReadBuffer.Read(p)
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	return m.WriteBuffer.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.Closed = true
	return nil
}

// 辅助函数：生成采样数据帧
func makeSampleFrame(samples []int16) []byte {
	// AA 55 N payload(2N) CHK
	frame := []byte{ADC_PREAMBLE1, ADC_PREAMBLE2, byte(len(samples))}
	for _, s := range samples {
		frame = append(frame, byte(uint16(s)&0xFF), byte(uint16(s)>>8))
	}
	chk := byte(len(samples))
	for _, b := range frame[3:] {
		chk ^= b
	}
	frame = append(frame, chk)
	return frame
}

func TestSendCommand(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	err := client.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 验证发送的数据: AA 55 01 CHK(01)
	expected := []byte{0xAA, 0x55, 0x01, 0x01}
	if !bytes.Equal(mockPort.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected command frame %X, got %X", expected, mockPort.WriteBuffer.Bytes())
	}
}

func TestSetSampleRate(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	err := client.SetSampleRate(250)
	if err != nil {
		t.Fatalf("SetSampleRate failed: %v", err)
	}

	// 250 = 0x00FA 小端: FA 00
	// CHK = 03 ^ FA ^ 00 = F9
	expected := []byte{0xAA, 0x55, 0x03, 0xFA, 0x00, 0xF9}
	if !bytes.Equal(mockPort.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected command frame %X, got %X", expected, mockPort.WriteBuffer.Bytes())
	}
}

func TestReadSamples(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	frame := makeSampleFrame([]int16{100, -200, 3000})
	mockPort.ReadBuffer.Write(frame)

	samples, err := client.ReadSamples()
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}

	expected := []float64{100, -200, 3000}
	if len(samples) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(samples))
	}
	for i, v := range expected {
		if samples[i] != v {
			t.Errorf("Sample %d: expected %f, got %f", i, v, samples[i])
		}
	}
}

func TestReadSamples_GarbagePrefix(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	// 帧前有垃圾字节，解析器应跳过并找到帧头
	mockPort.ReadBuffer.Write([]byte{0x00, 0xFF, 0x13})
	mockPort.ReadBuffer.Write(makeSampleFrame([]int16{-1}))

	samples, err := client.ReadSamples()
	if err != nil {
		t.Fatalf("ReadSamples with garbage prefix failed: %v", err)
	}
	if len(samples) != 1 || samples[0] != -1 {
		t.Errorf("Expected [-1], got %v", samples)
	}
}

func TestReadSamples_ChecksumMismatch(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	frame := makeSampleFrame([]int16{42})
	frame[len(frame)-1] ^= 0xFF // 破坏校验
	mockPort.ReadBuffer.Write(frame)

	_, err := client.ReadSamples()
	if err == nil {
		t.Fatal("Expected checksum error, got nil")
	}
}

func TestReadSamples_SplitFrame(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	frame := makeSampleFrame([]int16{7, 8})

	// 第一次只给半帧，第二次补齐
	mockPort.ReadBuffer.Write(frame[:4])

	if _, err := client.ReadSamples(); err == nil {
		t.Fatal("Expected incomplete frame error on first read")
	}

	mockPort.ReadBuffer.Write(frame[4:])
	samples, err := client.ReadSamples()
	if err != nil {
		t.Fatalf("ReadSamples on second half failed: %v", err)
	}
	if len(samples) != 2 || samples[0] != 7 || samples[1] != 8 {
		t.Errorf("Expected [7 8], got %v", samples)
	}
}

func TestSerialClose(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &ADCClient{conn: mockPort}

	err := client.Close()
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !mockPort.Closed {
		t.Error("Expected port to be closed")
	}
}

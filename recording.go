package qrs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ECG 记录的文件格式借用 16-bit PCM WAV：采样率写在头里，
// 单声道，幅度归一化到 -1.0~1.0。通用音频工具可以直接打开查看波形。

// RecordingReader 读取 ECG 记录文件 (仅支持 16-bit PCM，多声道时取第一通道)
type RecordingReader struct {
	file       *os.File
	SampleRate int
	Channels   int
	DataSize   int
	dataStart  int64
}

func NewRecordingReader(filename string) (*RecordingReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	// 读取 RIFF 头
	riffHeader := make([]byte, 12)
	if _, err := f.Read(riffHeader); err != nil {
		f.Close()
		return nil, err
	}

	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		f.Close()
		return nil, fmt.Errorf("invalid wav file")
	}

	var channels, sampleRate, bitsPerSample, dataSize int
	var dataStart int64
	foundFmt := false
	foundData := false

	for {
		chunkHeader := make([]byte, 8)
		if _, err := f.Read(chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			f.Close()
			return nil, err
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		// Pad byte if chunk size is odd
		padding := int64(chunkSize % 2)

		if chunkID == "fmt " {
			if chunkSize < 16 {
				f.Close()
				return nil, fmt.Errorf("fmt chunk too small")
			}
			fmtData := make([]byte, chunkSize)
			if _, err := f.Read(fmtData); err != nil {
				f.Close()
				return nil, err
			}
			if padding > 0 {
				f.Seek(padding, io.SeekCurrent)
			}

			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			foundFmt = true
		} else if chunkID == "data" {
			dataSize = int(chunkSize)
			pos, _ := f.Seek(0, io.SeekCurrent)
			dataStart = pos
			foundData = true

			if foundFmt {
				break
			}
			// Skip data
			if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
				f.Close()
				return nil, err
			}
		} else {
			// Skip unknown chunk
			if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if !foundFmt || !foundData {
		f.Close()
		return nil, fmt.Errorf("invalid wav file: missing fmt or data chunk")
	}

	if bitsPerSample != 16 {
		f.Close()
		return nil, fmt.Errorf("only 16-bit wav supported, got %d", bitsPerSample)
	}

	// 确保文件指针指向 data 开始
	if _, err := f.Seek(dataStart, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	return &RecordingReader{
		file:       f,
		SampleRate: sampleRate,
		Channels:   channels,
		DataSize:   dataSize,
		dataStart:  dataStart,
	}, nil
}

// ReadSamples 读取采样数据并转换为 float64
// count: 要读取的采样点数 (每个通道)
func (r *RecordingReader) ReadSamples(count int) ([]float64, error) {
	totalSamples := count * r.Channels
	buf := make([]byte, totalSamples*2) // 16-bit = 2 bytes

	n, err := r.file.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}

	// 多声道记录只取第一个通道
	numFrames := n / (2 * r.Channels)
	out := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		offset := i * 2 * r.Channels
		val := int16(binary.LittleEndian.Uint16(buf[offset : offset+2]))

		// 归一化到 -1.0 ~ 1.0
		out[i] = float64(val) / 32768.0
	}

	return out, nil
}

func (r *RecordingReader) Close() error {
	return r.file.Close()
}

// RecordingWriter 把采集到的 ECG 信号写成记录文件
type RecordingWriter struct {
	file       *os.File
	sampleRate int
	dataSize   int
}

// NewRecordingWriter 创建新的记录写入器
func NewRecordingWriter(filename string, sampleRate int) (*RecordingWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	// 写入占位符头 (44字节)
	// 稍后在 Close 时我们会回写正确的大小
	header := make([]byte, 44)
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, err
	}

	return &RecordingWriter{
		file:       f,
		sampleRate: sampleRate,
		dataSize:   0,
	}, nil
}

// WriteSamples 写入采样数据 (float64, -1.0 ~ 1.0)
func (w *RecordingWriter) WriteSamples(samples []float64) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		// 简单的限幅
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		val := int16(s * 32767)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(val))
	}

	n, err := w.file.Write(buf)
	if err != nil {
		return err
	}
	w.dataSize += n
	return nil
}

// Close 关闭文件并回写头
func (w *RecordingWriter) Close() error {
	totalSize := 36 + w.dataSize
	header := make([]byte, 44)

	// RIFF header
	copy(header[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:], uint32(totalSize))
	copy(header[8:], []byte("WAVE"))

	// fmt chunk
	copy(header[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:], 16) // Subchunk1Size (16 for PCM)
	binary.LittleEndian.PutUint16(header[20:], 1)  // AudioFormat (1 for PCM)
	binary.LittleEndian.PutUint16(header[22:], 1)  // NumChannels (1 for Mono)
	binary.LittleEndian.PutUint32(header[24:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(w.sampleRate*2)) // ByteRate
	binary.LittleEndian.PutUint16(header[32:], 2)                      // BlockAlign
	binary.LittleEndian.PutUint16(header[34:], 16)                     // BitsPerSample

	// data chunk
	copy(header[36:], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:], uint32(w.dataSize))

	// Seek 到开头并写入
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	if _, err := w.file.Write(header); err != nil {
		return err
	}

	return w.file.Close()
}

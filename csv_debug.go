package qrs

import (
	"bufio"
	"fmt"
	"os"
)

// StageDebugger 定义滤波级信号调试器接口
// 检测器只依赖这个接口，不依赖具体的文件操作
type StageDebugger interface {
	Record(raw, bandpass, integral, thresholdI, thresholdF float64, isPeak bool)
	Close()
}

// CsvStageDebugger 是 StageDebugger 的 CSV 文件实现
// 每个样本记录一行：原始信号、带通信号、积分信号、两个一号阈值和分类结果，
// 方便离线画图核对阈值自适应的轨迹
type CsvStageDebugger struct {
	file   *os.File
	writer *bufio.Writer
}

// NewCsvStageDebugger 创建一个新的 CSV 调试器
func NewCsvStageDebugger(filename string) (*CsvStageDebugger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	// 写入表头
	if _, err := w.WriteString("RawInput,Bandpass,Integral,ThresholdI1,ThresholdF1,IsPeak\n"); err != nil {
		f.Close()
		return nil, err
	}

	return &CsvStageDebugger{
		file:   f,
		writer: w,
	}, nil
}

// Record 记录单个样本的各级信号
func (d *CsvStageDebugger) Record(raw, bandpass, integral, thresholdI, thresholdF float64, isPeak bool) {
	peakVal := 0.0
	if isPeak {
		peakVal = 1.0
	}
	fmt.Fprintf(d.writer, "%f,%f,%f,%f,%f,%f\n", raw, bandpass, integral, thresholdI, thresholdF, peakVal)
}

// Close 关闭文件并刷新缓冲区
func (d *CsvStageDebugger) Close() {
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.file != nil {
		d.file.Close()
	}
}

// NoOpDebugger 是一个空实现，生产环境默认使用
// 避免在检测器主循环里写大量的 nil check
type NoOpDebugger struct{}

func (d *NoOpDebugger) Record(raw, bandpass, integral, thresholdI, thresholdF float64, isPeak bool) {
}
func (d *NoOpDebugger) Close() {}

package qrs

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// SpectrumAnalyzer 为工频干扰监控提供功率谱估计
// 单段谱 (PowerSpectrum)、Welch 平均谱 (WelchSpectrum) 和
// 频段峰值搜索 (BandPeak) 三个操作组合使用：
// 监控器用 Welch 谱压低 ECG 自身的方差，再在 45~65Hz 里找工频峰
type SpectrumAnalyzer struct {
	SampleRate float64
	FFTSize    int
	window     []float64
}

// NewSpectrumAnalyzer 创建新的频谱分析器
func NewSpectrumAnalyzer(sampleRate float64, fftSize int) *SpectrumAnalyzer {
	// 汉宁窗: 0.5 * (1 - cos(2*PI*n / (N-1)))
	window := make([]float64, fftSize)
	for i := 0; i < fftSize; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	return &SpectrumAnalyzer{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		window:     window,
	}
}

// PowerSpectrum 计算一段信号的功率谱 (加窗 FFT 后各 bin 的幅度平方)
// 段长必须等于 FFTSize，否则返回 nil。结果长度为 FFTSize/2+1
func (sa *SpectrumAnalyzer) PowerSpectrum(segment []float64) []float64 {
	if len(segment) != sa.FFTSize {
		return nil
	}

	input := make([]complex128, sa.FFTSize)
	for i, v := range segment {
		input[i] = complex(v*sa.window[i], 0)
	}
	spectrum := fft.FFT(input)

	power := make([]float64, sa.FFTSize/2+1)
	for i := range power {
		mag := cmplx.Abs(spectrum[i])
		power[i] = mag * mag
	}
	return power
}

// WelchSpectrum 计算 Welch 平均功率谱：按给定重叠把缓冲切成
// FFTSize 长的段，逐段求功率谱后取平均。凑不出一个完整段时返回 nil
func (sa *SpectrumAnalyzer) WelchSpectrum(buf []float64, overlap int) []float64 {
	step := sa.FFTSize - overlap
	if step < 1 {
		step = sa.FFTSize
	}

	var avg []float64
	segments := 0
	for i := 0; i+sa.FFTSize <= len(buf); i += step {
		power := sa.PowerSpectrum(buf[i : i+sa.FFTSize])
		if avg == nil {
			avg = power
		} else {
			for j := range avg {
				avg[j] += power[j]
			}
		}
		segments++
	}
	if segments == 0 {
		return nil
	}

	for j := range avg {
		avg[j] /= float64(segments)
	}
	return avg
}

// BandPeak 在功率谱的 [minFreq, maxFreq) 频段内寻找峰值
// 返回抛物线插值后的峰值频率，以及峰值 bin 加左右相邻 bin 的能量
// 占全谱能量 (不含直流) 的比例。工频干扰集中在极窄的频带内，
// 这个比例可以直接当干扰强度用。谱为空或全零时返回 (0, 0)
func (sa *SpectrumAnalyzer) BandPeak(power []float64, minFreq, maxFreq float64) (float64, float64) {
	if len(power) == 0 {
		return 0, 0
	}

	binWidth := sa.SampleRate / float64(sa.FFTSize)
	start := int(minFreq / binWidth)
	if start < 1 {
		start = 1
	}
	end := int(maxFreq / binWidth)
	if end > len(power) {
		end = len(power)
	}

	total := 0.0
	for i := 1; i < len(power); i++ {
		total += power[i]
	}
	if total < 1e-12 {
		return 0, 0
	}

	maxIndex := 0
	maxPower := 0.0
	for i := start; i < end; i++ {
		if power[i] > maxPower {
			maxPower = power[i]
			maxIndex = i
		}
	}

	// 抛物线插值，把频率精度提高到 bin 宽度以下
	var freq float64
	if maxIndex > 0 && maxIndex < len(power)-1 {
		alpha := power[maxIndex-1]
		beta := power[maxIndex]
		gamma := power[maxIndex+1]
		denom := alpha - 2*beta + gamma
		if denom != 0 {
			p := 0.5 * (alpha - gamma) / denom
			freq = (float64(maxIndex) + p) * binWidth
		} else {
			freq = float64(maxIndex) * binWidth
		}
	} else {
		freq = float64(maxIndex) * binWidth
	}

	peakPower := power[maxIndex]
	if maxIndex > 0 {
		peakPower += power[maxIndex-1]
	}
	if maxIndex < len(power)-1 {
		peakPower += power[maxIndex+1]
	}

	return freq, peakPower / total
}

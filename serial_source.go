package qrs

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	ADC_PREAMBLE1 = 0xAA // 帧头第一字节
	ADC_PREAMBLE2 = 0x55 // 帧头第二字节
	ADC_CMD_START = 0x01 // 开始采集
	ADC_CMD_STOP  = 0x02 // 停止采集
	ADC_CMD_RATE  = 0x03 // 设置采样率
)

// SerialPort 定义串口操作接口，方便测试 Mock
type SerialPort interface {
	io.ReadWriteCloser
}

// ADCClient 处理与串口 ECG 前端 (单片机 + ADC) 的通信
// 帧格式: AA 55 [N] [N 个 int16 小端样本] [CHK]
// CHK 为计数字节和全部负载字节的异或
type ADCClient struct {
	Port     string
	BaudRate int
	conn     SerialPort

	residual []byte // 上次读取剩下的不完整帧
}

// NewADCClient 创建新的串口采集客户端
func NewADCClient(port string, baudRate int) *ADCClient {
	return &ADCClient{
		Port:     port,
		BaudRate: baudRate,
	}
}

// Open 打开串口连接
func (c *ADCClient) Open() error {
	config := &serial.Config{
		Name:        c.Port,
		Baud:        c.BaudRate,
		ReadTimeout: time.Millisecond * 500,
	}
	s, err := serial.OpenPort(config)
	if err != nil {
		return err
	}
	c.conn = s
	return nil
}

// Close 关闭串口连接
func (c *ADCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand 发送控制命令
// 命令帧复用采样帧格式: AA 55 [Cmd] [Arg...] [CHK]
func (c *ADCClient) SendCommand(cmd byte, args []byte) error {
	if c.conn == nil {
		return fmt.Errorf("connection not open")
	}
	frame := []byte{ADC_PREAMBLE1, ADC_PREAMBLE2, cmd}
	if len(args) > 0 {
		frame = append(frame, args...)
	}
	chk := cmd
	for _, b := range args {
		chk ^= b
	}
	frame = append(frame, chk)

	_, err := c.conn.Write(frame)
	return err
}

// Start 通知前端开始推流
func (c *ADCClient) Start() error {
	return c.SendCommand(ADC_CMD_START, nil)
}

// Stop 通知前端停止推流
func (c *ADCClient) Stop() error {
	return c.SendCommand(ADC_CMD_STOP, nil)
}

// SetSampleRate 设置前端采样率 (Hz)，16 位小端
func (c *ADCClient) SetSampleRate(fs int) error {
	if fs <= 0 || fs > 0xFFFF {
		return fmt.Errorf("sample rate out of range: %d", fs)
	}
	args := []byte{byte(fs & 0xFF), byte(fs >> 8)}
	return c.SendCommand(ADC_CMD_RATE, args)
}

// ReadSamples 读取并解析下一帧采样数据
// 返回 ADC 计数值转成的 float64 切片
func (c *ADCClient) ReadSamples() ([]float64, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("connection not open")
	}
	buf := make([]byte, 1024)
	n, err := c.conn.Read(buf)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("connection closed")
		}
		// 串口读取超时也可能返回 err，视库实现而定
	}
	if n == 0 && len(c.residual) == 0 {
		return nil, fmt.Errorf("timeout or no data")
	}

	// 把上次剩下的半帧拼在前面
	data := append(c.residual, buf[:n]...)
	c.residual = nil

	// 查找帧头 AA 55
	header := []byte{ADC_PREAMBLE1, ADC_PREAMBLE2}
	idx := bytes.Index(data, header)
	if idx == -1 {
		return nil, fmt.Errorf("frame header not found in: %s", hex.EncodeToString(data))
	}

	frame := data[idx:]
	if len(frame) < 3 {
		c.residual = frame
		return nil, fmt.Errorf("incomplete frame header")
	}

	count := int(frame[2])
	// AA 55 N payload(2N) CHK
	total := 3 + count*2 + 1
	if len(frame) < total {
		c.residual = frame
		return nil, fmt.Errorf("incomplete frame: want %d bytes, have %d", total, len(frame))
	}

	payload := frame[3 : 3+count*2]
	chk := frame[2]
	for _, b := range payload {
		chk ^= b
	}
	if chk != frame[total-1] {
		// 校验失败时丢掉这个帧头，下次从后面继续找
		c.residual = frame[2:]
		return nil, fmt.Errorf("checksum mismatch: want %02X, got %02X", frame[total-1], chk)
	}

	// 多余的字节留给下一次调用
	if len(frame) > total {
		c.residual = frame[total:]
	}

	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		raw := int16(uint16(payload[i*2]) | uint16(payload[i*2+1])<<8)
		samples[i] = float64(raw)
	}
	return samples, nil
}

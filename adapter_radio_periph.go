//go:build !tinygo

package radiolink

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// NRF24-class register map. This is deliberately the same register set as
// an nRF24L01+, which is the radio the teacher driver this package is
// adapted from targets; any half-duplex 2.4GHz transceiver with a
// compatible command set works the same way.
const (
	regConfig     = 0x00
	regRFCh       = 0x05
	regStatus     = 0x07
	regRxAddrP0   = 0x0A
	regTxAddrReg  = 0x10
	regRxPwP0     = 0x11
	regDynpd      = 0x1C
	regFeature    = 0x1D
	cmdWRegister  = 0x20
	cmdRRxPayload = 0x61
	cmdWTxPayload = 0xA0
	cmdFlushTx    = 0xE1
	cmdFlushRx    = 0xE2
	cmdRRxPlWid   = 0x60
	cmdNop        = 0xFF

	bitPwrUp  = 1 << 1
	bitPrimRx = 1 << 0
	bitRxDr   = 1 << 6
	bitTxDs   = 1 << 5
	bitMaxRt  = 1 << 4
	bitEnCrc  = 1 << 3
	bitCrco   = 1 << 2
	bitEnDpl  = 1 << 2
	bitDpl0   = 1 << 0
)

// realPin wraps a periph.io gpio.PinIO to satisfy the package's own Pin
// interface, the same shape as the teacher's adapter-periph.go realPin.
type realPin struct {
	gpio.PinIO
}

func (p *realPin) Out(l Level) error {
	if l == High {
		return p.PinIO.Out(gpio.High)
	}
	return p.PinIO.Out(gpio.Low)
}

func (p *realPin) In(pull Pull) error {
	var pp gpio.Pull
	switch pull {
	case PullFloat:
		pp = gpio.Float
	case PullDown:
		pp = gpio.PullDown
	case PullUp:
		pp = gpio.PullUp
	default:
		pp = gpio.PullNoChange
	}
	return p.PinIO.In(pp, gpio.NoEdge)
}

func (p *realPin) Read() Level {
	if p.PinIO.Read() == gpio.High {
		return High
	}
	return Low
}

func (p *realPin) Watch(edge Edge, handler func()) error { return nil }
func (p *realPin) Unwatch() error                        { return nil }

// PeriphRadioConfig configures a real SPI+GPIO-attached half-duplex radio
// chip on a Linux host via periph.io.
type PeriphRadioConfig struct {
	Channel    byte
	RxAddr     [5]byte
	SpiBusPath string // defaults to /dev/spidev0.0
	SpiClockHz int     // defaults to 1MHz
	CEPin      int     // BCM pin number, defaults to 25
	MTUBytes   int     // defaults to MaxData + 4
}

// PeriphRadio is a RadioDriver backed by a real nRF24L01-class chip reached
// over periph.io SPI/GPIO, modeled on the teacher's adapter-periph.go.
type PeriphRadio struct {
	conn spi.Conn
	ce   *realPin

	cfg     PeriphRadioConfig
	events  chan RadioEvent
	stop    chan struct{}
	crcOK   bool
	mode    radioAdapterState
	rxBuf   []byte
	lastLen int
	scratch [65]byte
}

// NewPeriphRadio initializes periph.io's host drivers, opens the SPI bus and
// CE pin, and brings the chip up as a receiver on cfg.Channel/cfg.RxAddr.
func NewPeriphRadio(cfg PeriphRadioConfig) (*PeriphRadio, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %w", ErrPkg, err)
	}
	if cfg.SpiBusPath == "" {
		cfg.SpiBusPath = "/dev/spidev0.0"
	}
	if cfg.SpiClockHz == 0 {
		cfg.SpiClockHz = 1_000_000
	}
	if cfg.CEPin == 0 {
		cfg.CEPin = 25
	}
	if cfg.MTUBytes == 0 {
		cfg.MTUBytes = MaxData + 4
	}

	port, err := spireg.Open(cfg.SpiBusPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open SPI port: %w", ErrPkg, err)
	}
	conn, err := port.Connect(physic.Frequency(cfg.SpiClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: connect SPI: %w", ErrPkg, err)
	}

	ceName := fmt.Sprintf("GPIO%d", cfg.CEPin)
	cePin := gpioreg.ByName(ceName)
	if cePin == nil {
		return nil, fmt.Errorf("%w: open CE pin %s", ErrPkg, ceName)
	}

	r := &PeriphRadio{
		conn:   conn,
		ce:     &realPin{PinIO: cePin},
		cfg:    cfg,
		events: make(chan RadioEvent, 4),
		stop:   make(chan struct{}),
	}

	r.ce.Out(Low)
	r.writeReg(regConfig, 0)
	r.clearStatus()
	r.flush()
	r.writeReg(regConfig, bitPwrUp|bitPrimRx|bitEnCrc|bitCrco)
	time.Sleep(5 * time.Millisecond)
	r.writeReg(regRFCh, cfg.Channel)
	r.writeRegN(regRxAddrP0, cfg.RxAddr[:])
	r.writeReg(regFeature, bitEnDpl)
	r.writeReg(regDynpd, bitDpl0) // dynamic payload length on pipe 0: frames are variable-length

	go r.poll()

	return r, nil
}

func (r *PeriphRadio) spiTransfer(n int) []byte {
	slice := r.scratch[:n]
	r.conn.Tx(slice, slice)
	return slice
}

func (r *PeriphRadio) writeReg(reg, val byte) {
	r.scratch[0] = cmdWRegister | reg
	r.scratch[1] = val
	r.spiTransfer(2)
}

func (r *PeriphRadio) writeRegN(reg byte, data []byte) {
	r.scratch[0] = cmdWRegister | reg
	copy(r.scratch[1:], data)
	r.spiTransfer(1 + len(data))
}

func (r *PeriphRadio) readReg(reg byte) byte {
	r.scratch[0] = reg
	r.scratch[1] = cmdNop
	return r.spiTransfer(2)[1]
}

func (r *PeriphRadio) clearStatus() {
	r.writeReg(regStatus, bitRxDr|bitTxDs|bitMaxRt)
}

func (r *PeriphRadio) flush() {
	r.scratch[0] = cmdFlushTx
	r.spiTransfer(1)
	r.scratch[0] = cmdFlushRx
	r.spiTransfer(1)
}

// poll stands in for an IRQ-driven event source when no interrupt pin is
// wired: it periodically reads STATUS and synthesizes Address/End events,
// the same fallback the teacher's Device.ReceiveBlocking uses when IRQ is
// nil.
func (r *PeriphRadio) poll() {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			status := r.readReg(regStatus)
			if r.mode == radioRx && status&bitRxDr != 0 {
				r.scratch[0] = cmdRRxPlWid
				r.scratch[1] = cmdNop
				width := int(r.spiTransfer(2)[1])
				if width > len(r.rxBuf) {
					width = len(r.rxBuf)
				}
				r.scratch[0] = cmdRRxPayload
				for i := 1; i <= width; i++ {
					r.scratch[i] = cmdNop
				}
				data := r.spiTransfer(width + 1)[1:]
				copy(r.rxBuf, data)
				r.lastLen = width
				r.crcOK = true // chip already validated CRC in hardware
				r.clearStatus()
				r.events <- RadioAddress
				r.events <- RadioEnd
			}
			if status&bitTxDs != 0 || status&bitMaxRt != 0 {
				r.clearStatus()
				r.events <- RadioEnd
			}
		}
	}
}

func (r *PeriphRadio) EnableRX() {
	r.mode = radioRx
	r.writeReg(regConfig, bitPwrUp|bitPrimRx|bitEnCrc|bitCrco)
	r.ce.Out(High)
	r.events <- RadioReady
}

func (r *PeriphRadio) EnableTX() {
	r.mode = radioTx
	r.writeReg(regConfig, bitPwrUp|bitEnCrc|bitCrco) // PRIM_RX cleared: transmitter
	r.scratch[0] = cmdWTxPayload
	copy(r.scratch[1:], r.rxBuf)
	r.spiTransfer(1 + len(r.rxBuf))
	r.ce.Out(High)
	time.Sleep(15 * time.Microsecond)
	r.ce.Out(Low)
}

func (r *PeriphRadio) Disable() {
	r.ce.Out(Low)
	r.events <- RadioDisabled
}

func (r *PeriphRadio) SetPacketPtr(buf []byte) {
	r.rxBuf = buf
}

func (r *PeriphRadio) Events() <-chan RadioEvent { return r.events }

func (r *PeriphRadio) CRCOK() bool { return r.crcOK }

func (r *PeriphRadio) MTU() int { return r.cfg.MTUBytes }

func (r *PeriphRadio) LastRxLen() int { return r.lastLen }

// Close stops the polling goroutine.
func (r *PeriphRadio) Close() {
	close(r.stop)
}

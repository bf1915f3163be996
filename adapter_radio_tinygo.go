//go:build tinygo

package radiolink

import (
	"machine"
	"time"
)

// NRF24-class register map, duplicated from adapter_radio_periph.go since
// build tags keep the two files from ever compiling together.
const (
	regConfig     = 0x00
	regRFCh       = 0x05
	regStatus     = 0x07
	regRxAddrP0   = 0x0A
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

// tinygoPin wraps a machine.Pin to satisfy the Pin interface, unchanged from
// the teacher's adapter-tinygo.go.
type tinygoPin struct {
	pin machine.Pin
}

func (p *tinygoPin) Out(l Level) error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Set(bool(l))
	return nil
}

func (p *tinygoPin) In(pull Pull) error {
	var mPull machine.PinMode
	switch pull {
	case PullUp:
		mPull = machine.PinInputPullup
	case PullDown:
		mPull = machine.PinInputPulldown
	default:
		mPull = machine.PinInput
	}
	p.pin.Configure(machine.PinConfig{Mode: mPull})
	return nil
}

func (p *tinygoPin) Read() Level {
	return Level(p.pin.Get())
}

func (p *tinygoPin) Watch(edge Edge, handler func()) error {
	var mEdge machine.PinChange
	switch edge {
	case RisingEdge:
		mEdge = machine.PinRising
	case FallingEdge:
		mEdge = machine.PinFalling
	case BothEdges:
		mEdge = machine.PinToggle
	default:
		return nil
	}
	return p.pin.SetInterrupt(mEdge, func(machine.Pin) {
		handler()
	})
}

func (p *tinygoPin) Unwatch() error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}

// tinygoSPI wraps a machine.SPI plus a chip-select pin to satisfy the SPI
// interface.
type tinygoSPI struct {
	spi *machine.SPI
	cs  machine.Pin
}

func (s *tinygoSPI) Tx(w, r []byte) error {
	s.cs.Low()
	err := s.spi.Tx(w, r)
	s.cs.High()
	return err
}

// TinygoRadioConfig configures a bare-metal half-duplex radio chip reached
// over a TinyGo machine.SPI bus.
type TinygoRadioConfig struct {
	Channel byte
	RxAddr  [5]byte
	SPI     *machine.SPI
	CSPin   machine.Pin
	CEPin   machine.Pin
	// IRQPin is the interrupt pin. Use machine.NoPin to fall back to
	// polling STATUS on a timer, the same fallback PeriphRadio uses.
	IRQPin machine.Pin
}

// TinygoRadio is a RadioDriver backed by a bare-metal nRF24L01-class chip,
// modeled on the teacher's adapter-tinygo.go New()/Device pairing but
// reporting events over a channel instead of blocking calls.
type TinygoRadio struct {
	spi *tinygoSPI
	ce  *tinygoPin
	irq *tinygoPin

	cfg     TinygoRadioConfig
	events  chan RadioEvent
	crcOK   bool
	mode    radioAdapterState
	rxBuf   []byte
	lastLen int
	scratch [65]byte
}

// NewTinygoRadio brings up the chip on cfg.Channel/cfg.RxAddr and, if an IRQ
// pin is given, watches it for falling edges; otherwise it starts a polling
// goroutine like PeriphRadio's.
func NewTinygoRadio(cfg TinygoRadioConfig) *TinygoRadio {
	cfg.CSPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cfg.CSPin.High()

	r := &TinygoRadio{
		spi:    &tinygoSPI{spi: cfg.SPI, cs: cfg.CSPin},
		ce:     &tinygoPin{pin: cfg.CEPin},
		cfg:    cfg,
		events: make(chan RadioEvent, 4),
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
	r.writeReg(regDynpd, bitDpl0)

	if cfg.IRQPin != machine.NoPin {
		r.irq = &tinygoPin{pin: cfg.IRQPin}
		r.irq.In(PullUp)
		r.irq.Watch(FallingEdge, r.onIRQ)
	} else {
		go r.poll()
	}

	return r
}

func (r *TinygoRadio) spiTransfer(n int) []byte {
	slice := r.scratch[:n]
	r.spi.Tx(slice, slice)
	return slice
}

func (r *TinygoRadio) writeReg(reg, val byte) {
	r.scratch[0] = cmdWRegister | reg
	r.scratch[1] = val
	r.spiTransfer(2)
}

func (r *TinygoRadio) writeRegN(reg byte, data []byte) {
	r.scratch[0] = cmdWRegister | reg
	copy(r.scratch[1:], data)
	r.spiTransfer(1 + len(data))
}

func (r *TinygoRadio) readReg(reg byte) byte {
	r.scratch[0] = reg
	r.scratch[1] = cmdNop
	return r.spiTransfer(2)[1]
}

func (r *TinygoRadio) clearStatus() {
	r.writeReg(regStatus, bitRxDr|bitTxDs|bitMaxRt)
}

func (r *TinygoRadio) flush() {
	r.scratch[0] = cmdFlushTx
	r.spiTransfer(1)
	r.scratch[0] = cmdFlushRx
	r.spiTransfer(1)
}

func (r *TinygoRadio) checkStatus() {
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
		r.crcOK = true
		r.clearStatus()
		r.events <- RadioAddress
		r.events <- RadioEnd
	}
	if status&bitTxDs != 0 || status&bitMaxRt != 0 {
		r.clearStatus()
		r.events <- RadioEnd
	}
}

func (r *TinygoRadio) onIRQ() {
	r.checkStatus()
}

func (r *TinygoRadio) poll() {
	for {
		time.Sleep(2 * time.Millisecond)
		r.checkStatus()
	}
}

func (r *TinygoRadio) EnableRX() {
	r.mode = radioRx
	r.writeReg(regConfig, bitPwrUp|bitPrimRx|bitEnCrc|bitCrco)
	r.ce.Out(High)
	r.events <- RadioReady
}

func (r *TinygoRadio) EnableTX() {
	r.mode = radioTx
	r.writeReg(regConfig, bitPwrUp|bitEnCrc|bitCrco) // PRIM_RX cleared: transmitter
	r.scratch[0] = cmdWTxPayload
	copy(r.scratch[1:], r.rxBuf)
	r.spiTransfer(1 + len(r.rxBuf))
	r.ce.Out(High)
	time.Sleep(15 * time.Microsecond)
	r.ce.Out(Low)
}

func (r *TinygoRadio) Disable() {
	r.ce.Out(Low)
	r.events <- RadioDisabled
}

func (r *TinygoRadio) SetPacketPtr(buf []byte) {
	r.rxBuf = buf
}

func (r *TinygoRadio) Events() <-chan RadioEvent { return r.events }

func (r *TinygoRadio) CRCOK() bool { return r.crcOK }

func (r *TinygoRadio) MTU() int { return MaxData + 4 }

func (r *TinygoRadio) LastRxLen() int { return r.lastLen }

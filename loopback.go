package radiolink

// loopback.go provides in-memory RadioDriver/UARTDriver fakes, generalizing
// the teacher's nrf24_test.go mockPin/mockSPIConn idiom: instead of faking
// the SPI wire, these fake the framed-packet and byte-stream channels
// directly, so a pair of engines can be driven against each other without
// any hardware.

// LoopbackRadioPair creates two RadioDriver ends connected to each other, as
// if two chips shared the same channel and were always in range. One side's
// EnableTX copies the frame straight into the other side's rxBuf and queues
// RadioAddress then RadioEnd on the other side's Events() channel.
type LoopbackRadioPair struct {
	a, b *LoopbackRadio
}

// NewLoopbackRadioPair builds a connected pair. mtu bounds each side's
// packet buffer, mirroring RadioDriver.MTU().
func NewLoopbackRadioPair(mtu int) (*LoopbackRadioPair, *LoopbackRadio, *LoopbackRadio) {
	a := &LoopbackRadio{mtu: mtu, events: make(chan RadioEvent, 8)}
	b := &LoopbackRadio{mtu: mtu, events: make(chan RadioEvent, 8)}
	a.peer = b
	b.peer = a
	pair := &LoopbackRadioPair{a: a, b: b}
	return pair, a, b
}

// LoopbackRadio is a RadioDriver that hands transmitted packets directly to
// its peer's rxBuf rather than going over the air. It has no concept of
// range, channel, or CRC corruption; CRCOK always reports true.
type LoopbackRadio struct {
	peer     *LoopbackRadio
	mtu      int
	rxBuf    []byte
	lastLen  int
	events   chan RadioEvent
	mode     radioAdapterState
}

func (r *LoopbackRadio) EnableRX() {
	r.mode = radioRx
	r.events <- RadioReady
}

func (r *LoopbackRadio) EnableTX() {
	r.mode = radioTx
	frame := make([]byte, len(r.rxBuf))
	copy(frame, r.rxBuf)
	if r.peer != nil && r.peer.rxBuf != nil {
		n := copy(r.peer.rxBuf, frame)
		r.peer.lastLen = n
		r.peer.events <- RadioAddress
		r.peer.events <- RadioEnd
	}
	r.events <- RadioEnd
}

func (r *LoopbackRadio) Disable() {
	r.events <- RadioDisabled
}

func (r *LoopbackRadio) SetPacketPtr(buf []byte) {
	r.rxBuf = buf
}

func (r *LoopbackRadio) Events() <-chan RadioEvent { return r.events }

func (r *LoopbackRadio) CRCOK() bool { return true }

func (r *LoopbackRadio) MTU() int { return r.mtu }

func (r *LoopbackRadio) LastRxLen() int { return r.lastLen }

// LoopbackUARTPair creates two UARTDriver ends: bytes written to one side's
// WriteByte become readable from the other side's ReadByte, modeling two
// hosts connected by a null-modem cable instead of two engines on the same
// bridge talking to local processes.
type LoopbackUARTPair struct{}

// NewLoopbackUARTPair builds a connected pair of in-memory UART ends.
func NewLoopbackUARTPair() (*LoopbackUART, *LoopbackUART) {
	a := &LoopbackUART{rxReady: make(chan struct{}, 64), txReady: make(chan struct{}, 1)}
	b := &LoopbackUART{rxReady: make(chan struct{}, 64), txReady: make(chan struct{}, 1)}
	a.peer = b
	b.peer = a
	return a, b
}

// LoopbackUART is a UARTDriver that delivers WriteByte calls straight to its
// peer's receive side.
type LoopbackUART struct {
	peer    *LoopbackUART
	inbox   []byte
	rxReady chan struct{}
	txReady chan struct{}
}

func (u *LoopbackUART) WriteByte(b byte) {
	if u.peer != nil {
		u.peer.inbox = append(u.peer.inbox, b)
		select {
		case u.peer.rxReady <- struct{}{}:
		default:
		}
	}
	select {
	case u.txReady <- struct{}{}:
	default:
	}
}

func (u *LoopbackUART) TxReady() <-chan struct{} { return u.txReady }

func (u *LoopbackUART) RxReady() <-chan struct{} { return u.rxReady }

func (u *LoopbackUART) ReadByte() byte {
	if len(u.inbox) == 0 {
		return 0
	}
	b := u.inbox[0]
	u.inbox = u.inbox[1:]
	return b
}

package radiolink

import "time"

// XON and XOFF are the in-band software flow-control bytes exchanged over
// the payload channel. They are ordinary payload bytes as far as the codec
// and dedup logic are concerned.
const (
	XON  byte = 0x11
	XOFF byte = 0x13
)

// RadioEvent identifies one of the four events a half-duplex radio
// peripheral surfaces to its adapter shim.
type RadioEvent uint8

const (
	// RadioAddress fires when a frame preamble/address has been detected;
	// reception is irrevocable until End fires.
	RadioAddress RadioEvent = iota
	// RadioEnd fires when a frame has been fully received or fully sent.
	RadioEnd
	// RadioDisabled fires once the radio has left TX mode and is safe to
	// re-enable for RX.
	RadioDisabled
	// RadioReady fires once the radio has finished switching into RX or TX
	// mode.
	RadioReady
)

// RadioDriver is the external collaborator that talks to the physical
// half-duplex radio peripheral. It is intentionally narrow: everything it
// does is either a mode switch, a one-shot query, or an event source. The
// engine and its adapter shim never touch peripheral registers directly.
type RadioDriver interface {
	// EnableRX switches the radio into receive mode.
	EnableRX()
	// EnableTX switches the radio into transmit mode. The caller must have
	// disabled RX first (half-duplex).
	EnableTX()
	// Disable leaves whatever mode the radio is in (used when switching
	// from TX back to RX).
	Disable()
	// SetPacketPtr hands the driver the buffer to fill (RX) or send from
	// (TX) for the next frame.
	SetPacketPtr(buf []byte)
	// Events returns a channel the adapter shim can read RadioEvents from.
	Events() <-chan RadioEvent
	// CRCOK reports whether the most recently received frame passed the
	// radio's own CRC/MIC check. Only meaningful right after a RadioEnd
	// event received while in RX mode.
	CRCOK() bool
	// MTU is the maximum frame size (header + payload) this radio can
	// carry in one transmission.
	MTU() int
	// LastRxLen reports the exact byte length of the most recently received
	// frame (the protocol's wire format has no external length prefix, so
	// the adapter must trim the fixed-capacity buffer handed to
	// SetPacketPtr down to this length before decoding it). Only
	// meaningful right after a RadioEnd event received while in RX mode.
	LastRxLen() int
}

// UARTDriver is the external collaborator that talks to the local UART
// peripheral. Bytes flow through it one at a time, the way a bare-metal
// UART interrupt handler sees them.
type UARTDriver interface {
	// WriteByte pushes one byte into the UART's TX register. The caller
	// must not call it again until the previous write's TxReady event has
	// fired.
	WriteByte(b byte)
	// TxReady returns a channel that receives a value each time the UART
	// has finished sending the byte given to WriteByte and is ready for
	// another (the "txdrdy" event).
	TxReady() <-chan struct{}
	// RxReady returns a channel that receives a value each time a byte has
	// arrived on the UART (the "rxdrdy" event). Call ReadByte to consume
	// it.
	RxReady() <-chan struct{}
	// ReadByte returns the most recently received byte.
	ReadByte() byte
}

// TickSource is a 1kHz monotonic millisecond counter that may wrap. now()
// returns the current value of the counter.
type TickSource func() uint32

// Cipher is a reserved seam for optional link-layer encryption (out of
// scope per the protocol's non-goals). An adapter shim may run inbound
// frame bytes through Open and outbound frame bytes through Seal before
// they reach the radio driver. No implementation is provided; the engine
// never references this type.
type Cipher interface {
	Seal(plaintext []byte) []byte
	Open(ciphertext []byte) ([]byte, bool)
}

// Level represents the logical level of a GPIO pin (Low or High). Kept for
// the hardware adapters that wrap a real radio chip's CE/IRQ pins.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Pull represents the internal pull-up/down resistor state of a pin.
type Pull uint8

const (
	PullNoChange Pull = iota
	PullFloat
	PullDown
	PullUp
)

// Edge represents the signal edge to trigger an interrupt on.
type Edge uint8

const (
	NoEdge Edge = iota
	RisingEdge
	FallingEdge
	BothEdges
)

// SPI represents a generic SPI connection, used by the concrete radio
// adapters to talk to a real half-duplex transceiver chip.
type SPI interface {
	Tx(w, r []byte) error
}

// Pin represents a generic GPIO pin, used by the concrete radio adapters
// for chip-enable and interrupt-request lines.
type Pin interface {
	Out(l Level) error
	In(pull Pull) error
	Read() Level
	Watch(edge Edge, handler func()) error
	Unwatch() error
}

// defaultTick returns a TickSource backed by the host's monotonic clock,
// for hosted (non-embedded) builds where there is no dedicated 1kHz ISR.
func defaultTick(start time.Time) TickSource {
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

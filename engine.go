package radiolink

import "fmt"

// RetryBase is the default minimum retransmit interval in ticks
// (milliseconds at the canonical 1kHz tick rate), used when a Config
// doesn't override it.
const RetryBase uint32 = 2

// RetryCap is the default maximum number of transmissions (including the
// original) attempted for one outstanding DATA frame before the engine
// gives up on it, used when a Config doesn't override it.
const RetryCap uint32 = 16

// retransmitDue reports whether enough time has passed since the last
// (re)transmission to retry. The jitter term is a deterministic function of
// now, not of tx_count, so that two peers with aligned clocks don't retry
// in lockstep forever; it is bounded (<89ms) and does not grow with
// tx_count, unlike an exponential-backoff scheme.
func retransmitDue(now, since, retryBase uint32) bool {
	elapsed := now - since // wrapping subtraction: correct across uint32 wrap
	jitter := (now * 7) % 89
	return elapsed > retryBase+jitter
}

// Engine is the protocol engine: the paired RX/TX state machine that
// decides, on every Tick, whether to transmit, what to transmit, and when
// to retransmit. It owns RxState, TxState, and the next packet id
// exclusively; nothing else may mutate them. Tick never blocks and does at
// most one queue pop, one push, per call.
type Engine struct {
	rx     RxState
	tx     TxState
	nextID PacketID

	radioRxQ *FrameQueue
	radioTxQ *FrameQueue
	uartRxQ  *Queue
	uartTxQ  *Queue

	maxData   int
	retryCap  uint32
	retryBase uint32
}

// NewEngine constructs an engine wired to the four queues that mediate all
// data flow, tuned by cfg (zero fields fall back to DefaultConfig's
// values). Engine state starts in (Initial, Idle) as required by the
// bring-up lifecycle.
func NewEngine(cfg Config, radioRxQ, radioTxQ *FrameQueue, uartRxQ, uartTxQ *Queue) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		rx:        RxInitial,
		tx:        TxIdle,
		radioRxQ:  radioRxQ,
		radioTxQ:  radioTxQ,
		uartRxQ:   uartRxQ,
		uartTxQ:   uartTxQ,
		maxData:   cfg.MaxData,
		retryCap:  cfg.RetryCap,
		retryBase: cfg.RetryBaseMillis,
	}
}

// RxState returns the engine's current receive state, for tests and
// diagnostics.
func (e *Engine) RxState() RxState { return e.rx }

// TxState returns the engine's current transmit state, for tests and
// diagnostics.
func (e *Engine) TxState() TxState { return e.tx }

// NextPacketID returns the id that will be assigned to the next originated
// DATA frame.
func (e *Engine) NextPacketID() PacketID { return e.nextID }

// Tick runs one iteration of the per-tick sequence: drain at most one frame
// from radio_rx_q, assemble at most one frame onto radio_tx_q, and return a
// pending-work hint telling the caller which side(s) to re-wake.
func (e *Engine) Tick(now uint32) Pend {
	rxPend := e.drainRX(now)
	txPend := e.assembleTX(now)
	return rxPend.Combine(txPend)
}

// drainRX pops and dispatches at most one frame. Looping to drain more than
// one frame per tick is permitted by the protocol but not required; this
// engine does one-frame-per-tick with pending-work re-entry, per the
// resolved "drain vs loop" open question.
func (e *Engine) drainRX(now uint32) Pend {
	f, ok := e.radioRxQ.Dequeue()
	if !ok {
		return PendNothing
	}
	switch {
	case f.IsAck():
		return e.handleAck(f.AckID())
	case f.IsData():
		return e.handleData(now, f.Data())
	case f.IsBoth():
		// The ack half of a BOTH frame is always processed before the
		// data half.
		ackPend := e.handleAck(f.AckID())
		dataPend := e.handleData(now, f.Data())
		return ackPend.Combine(dataPend)
	default:
		return PendNothing
	}
}

func (e *Engine) handleAck(a PacketID) Pend {
	if e.tx.IsSent() {
		pd, _, _ := e.tx.Sent()
		if pd.ID == a {
			e.tx = TxIdle
		} else {
			globalLogger.Debug(fmt.Sprintf("radiolink: expected ack %d but received ack %d", pd.ID, a))
		}
	} else {
		globalLogger.Debug(fmt.Sprintf("radiolink: received unexpected ack %d", a))
	}
	return PendNothing
}

func (e *Engine) handleData(now uint32, pd PacketData) Pend {
	switch {
	case e.rx.IsInitial():
		e.deliver(pd.Data)
		e.rx = RxNeedsAck(pd.ID)
		return PendUart
	case e.rx.IsAcked():
		last, _ := e.rx.ID()
		if pd.ID != last {
			e.deliver(pd.Data)
			e.rx = RxNeedsAck(pd.ID)
			return PendUart
		}
		globalLogger.Debug(fmt.Sprintf("radiolink: received duplicate packet %d", pd.ID))
		e.rx = RxNeedsAck(pd.ID)
		return PendNothing
	case e.rx.IsNeedsAck():
		globalLogger.Debug(fmt.Sprintf("radiolink: received data %d while ack still pending, dropping", pd.ID))
		return PendNothing
	default:
		return PendNothing
	}
}

func (e *Engine) deliver(data []byte) {
	for _, b := range data {
		if err := e.uartTxQ.Enqueue(b); err != nil {
			globalLogger.Warn("radiolink: uart tx queue full, dropping byte")
		}
	}
}

// assembleTX implements the TX assembly decision table (§4.3.3): given
// (RxState, TxState, uart_rx_q emptiness, now), compute the next frame to
// enqueue onto radio_tx_q, if any, and the resulting state.
func (e *Engine) assembleTX(now uint32) Pend {
	uartHasData := !e.uartRxQ.IsEmpty()

	if e.tx.IsSent() {
		pd, n, since := e.tx.Sent()

		// The peer just sent us new DATA (or retransmitted while we still
		// owe them an ack) and we have our own outstanding packet: respond
		// immediately with both halves rather than waiting for our own
		// retransmit timer, since the peer is evidently still listening.
		if e.rx.IsNeedsAck() {
			a, _ := e.rx.ID()
			return e.enqueueTx(BothFrame(a, pd), func() {
				e.rx = RxAcked(a)
				e.tx = TxSent(pd, n+1, now)
			})
		}

		if !retransmitDue(now, since, e.retryBase) {
			return PendNothing
		}

		if n >= e.retryCap {
			globalLogger.Warn(fmt.Sprintf("radiolink: no ack for packet %d after %d transmits, giving up", pd.ID, n))
			e.tx = TxIdle
			return PendNothing
		}

		var frame Frame
		if e.rx.IsAcked() {
			a, _ := e.rx.ID()
			frame = BothFrame(a, pd)
		} else {
			frame = DataFrame(pd)
		}
		return e.enqueueTx(frame, func() {
			e.tx = TxSent(pd, n+1, now)
		})
	}

	// TxState is Idle. Check for room before draining: bytes drained from
	// uart_rx_q cannot be put back if the enqueue then fails.
	if e.radioTxQ.Len() == len(e.radioTxQ.buf) {
		globalLogger.Warn("radiolink: radio tx queue full")
		return PendRadio
	}
	if e.rx.IsNeedsAck() {
		a, _ := e.rx.ID()
		if uartHasData {
			pdNew, ok := e.drain()
			if !ok {
				return PendNothing
			}
			return e.enqueueTx(BothFrame(a, pdNew), func() {
				e.rx = RxAcked(a)
				e.tx = TxSent(pdNew, 1, now)
			})
		}
		return e.enqueueTx(AckFrame(a), func() {
			e.rx = RxAcked(a)
		})
	}

	if uartHasData {
		pdNew, ok := e.drain()
		if !ok {
			return PendNothing
		}
		return e.enqueueTx(DataFrame(pdNew), func() {
			e.tx = TxSent(pdNew, 1, now)
		})
	}

	return PendNothing
}

// enqueueTx tries to push frame onto radio_tx_q. On success it applies the
// state transition and returns PendRadio. On a transient full queue it logs
// and returns PendRadio without changing state, so the next tick retries
// the same frame (§7, "radio tx queue full").
func (e *Engine) enqueueTx(frame Frame, onSuccess func()) Pend {
	if err := e.radioTxQ.Enqueue(frame); err != nil {
		globalLogger.Warn("radiolink: radio tx queue full")
		return PendRadio
	}
	onSuccess()
	return PendRadio
}

// drain pops up to maxData bytes from uart_rx_q and assigns the next
// packet id. It returns ok=false only in the race where uart_rx_q was
// observed non-empty but is empty by the time of the actual drain; callers
// must discard rather than emit a zero-length frame in that case.
// A pending XON/XOFF control byte is taken first, so flow-control bytes
// injected into uart_rx_q ride to the peer as ordinary payload.
func (e *Engine) drain() (PacketData, bool) {
	var data []byte
	if e.uartRxQ.hasControl {
		b, _ := e.uartRxQ.Dequeue()
		data = append(data, b)
	}
	data = append(data, e.uartRxQ.DrainUpTo(e.maxData-len(data))...)
	if len(data) == 0 {
		return PacketData{}, false
	}
	id := e.nextID
	e.nextID++
	return PacketData{ID: id, Data: data}, true
}

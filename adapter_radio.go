package radiolink

// radioAdapterState is the half-duplex radio adapter's own state, distinct
// from the engine's RxState/TxState. It tracks which mode the physical
// radio is currently in.
type radioAdapterState uint8

const (
	radioIdle radioAdapterState = iota
	radioRx
	radioTx
	radioTxDisable
)

// RadioAdapter translates a RadioDriver's events into FrameQueue operations
// and ticks the engine afterward. It is the "adapter shim" of §4.4: a
// half-duplex radio can only receive or transmit, never both, so the
// adapter must leave RX before entering TX and must not re-enter RX until
// the driver confirms TX is fully disabled.
type RadioAdapter struct {
	driver RadioDriver
	engine *Engine
	tick   TickSource

	state   radioAdapterState
	rxBuf   []byte
	txFrame []byte
}

// NewRadioAdapter wires a RadioDriver to an Engine. The adapter starts in
// Idle; call Start to put the radio in RX and begin processing driver
// events.
func NewRadioAdapter(driver RadioDriver, engine *Engine, tick TickSource) *RadioAdapter {
	return &RadioAdapter{
		driver: driver,
		engine: engine,
		tick:   tick,
		state:  radioIdle,
		rxBuf:  make([]byte, driver.MTU()),
	}
}

// Start arms the driver's RX buffer and enables RX. Call once at bring-up.
func (a *RadioAdapter) Start() {
	a.driver.SetPacketPtr(a.rxBuf)
	a.driver.EnableRX()
}

// HandleEvent processes one RadioEvent and reports the pending-work hint
// from the engine tick it triggers, if any (PendNothing if the event
// produced no engine-visible change).
func (a *RadioAdapter) HandleEvent(ev RadioEvent) Pend {
	switch a.state {
	case radioIdle:
		switch ev {
		case RadioAddress:
			// A frame is arriving; reception is irrevocable until End.
			a.state = radioRx
		case RadioReady:
			// Radio finished switching into RX after startup/re-enable.
		}
	case radioRx:
		if ev == RadioEnd {
			pend := PendNothing
			if a.driver.CRCOK() {
				if f, err := Decode(a.rxBuf[:a.driver.LastRxLen()]); err == nil {
					if err := a.engine.radioRxQ.Enqueue(f); err != nil {
						globalLogger.Warn("radiolink: radio rx queue full, dropping frame")
					}
				} else {
					globalLogger.Debug("radiolink: dropping malformed frame: " + err.Error())
				}
			} else {
				globalLogger.Debug("radiolink: dropping frame with bad CRC")
			}
			a.driver.SetPacketPtr(a.rxBuf)
			a.driver.EnableRX()
			a.state = radioIdle
			pend = a.engine.Tick(a.tick())
			return pend
		}
	case radioTx:
		if ev == RadioEnd {
			a.driver.Disable()
			a.state = radioTxDisable
		}
	case radioTxDisable:
		if ev == RadioDisabled {
			a.driver.SetPacketPtr(a.rxBuf)
			a.driver.EnableRX()
			a.state = radioIdle
		}
	}
	return PendNothing
}

// PumpTx is called by the runtime when the engine's Pend hint indicates the
// radio side has work: if the adapter is idle and a frame is waiting on
// radio_tx_q, it leaves RX and switches to TX, per "half-duplex: must leave
// RX to enter TX".
func (a *RadioAdapter) PumpTx() {
	if a.state != radioIdle {
		return
	}
	f, ok := a.engine.radioTxQ.Dequeue()
	if !ok {
		return
	}
	buf, err := Encode(f, a.engine.maxData)
	if err != nil {
		globalLogger.Error("radiolink: failed to encode assembled frame: " + err.Error())
		return
	}
	a.txFrame = buf
	a.driver.Disable()
	a.driver.SetPacketPtr(a.txFrame)
	a.driver.EnableTX()
	a.state = radioTx
}

// Tick re-drives the engine on behalf of the runtime (e.g. when a tick
// event or a UART-side change may have produced new radio-side work) and
// attempts to pump any newly assembled frame out.
func (a *RadioAdapter) Tick(now uint32) Pend {
	pend := a.engine.Tick(now)
	a.PumpTx()
	return pend
}

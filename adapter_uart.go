package radiolink

// UARTAdapter translates a UARTDriver's byte-level rxdrdy/txdrdy events into
// Queue operations and ticks the engine afterward, the other half of the
// §4.4 adapter shim pair.
type UARTAdapter struct {
	driver UARTDriver
	engine *Engine
	tick   TickSource

	busy bool
}

// NewUARTAdapter wires a UARTDriver to an Engine.
func NewUARTAdapter(driver UARTDriver, engine *Engine, tick TickSource) *UARTAdapter {
	return &UARTAdapter{driver: driver, engine: engine, tick: tick}
}

// HandleRx is called on the UART's rxdrdy event: it enqueues the received
// byte into uart_rx_q (dropping it with a log if the queue is full) and
// ticks the engine.
func (a *UARTAdapter) HandleRx() Pend {
	b := a.driver.ReadByte()
	if err := a.engine.uartRxQ.Enqueue(b); err != nil {
		globalLogger.Warn("radiolink: uart rx queue full, dropping byte")
	}
	a.engine.uartRxQ.FlowControl(a.engine.uartTxQ)
	a.engine.uartTxQ.FlowControl(a.engine.uartRxQ)
	return a.engine.Tick(a.tick())
}

// HandleTx is called on the UART's txdrdy event: it clears the busy flag
// and, while not busy, dequeues and writes bytes from uart_tx_q one at a
// time.
func (a *UARTAdapter) HandleTx() {
	a.busy = false
	a.pump()
}

// Pump writes the next queued byte to the UART if the UART is not already
// busy sending one. Call it after any change that may have added bytes to
// uart_tx_q (an engine tick, a fresh HandleTx).
func (a *UARTAdapter) Pump() {
	a.pump()
}

func (a *UARTAdapter) pump() {
	if a.busy {
		return
	}
	b, ok := a.engine.uartTxQ.Dequeue()
	if !ok {
		return
	}
	a.driver.WriteByte(b)
	a.busy = true
}

// Tick re-drives the engine, re-checks flow control in both directions now
// that the engine may have drained uart_rx_q or delivered into uart_tx_q,
// and pumps any newly queued UART TX bytes.
func (a *UARTAdapter) Tick(now uint32) Pend {
	pend := a.engine.Tick(now)
	a.engine.uartRxQ.FlowControl(a.engine.uartTxQ)
	a.engine.uartTxQ.FlowControl(a.engine.uartRxQ)
	a.pump()
	return pend
}

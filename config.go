package radiolink

// Config holds the compile-time-equivalent tunables for one side of a
// bridge. Defaults mirror the typical values spec.md calls out.
type Config struct {
	// MaxData is the maximum payload bytes per DATA frame. Must be <=
	// MTU-4 for whatever radio is plugged in. Defaults to MaxData (60) if
	// zero.
	MaxData int
	// QueueSize is the byte queue capacity for uart_rx_q/uart_tx_q.
	// DefaultConfig sets it to 1024. NewEngine does not read it: the caller
	// builds the queues and passes them in, so a zero value is not replaced
	// anywhere the queues are sized.
	QueueSize int
	// RetryCap is the max transmissions per DATA before giving up.
	// Defaults to RetryCap (16) if zero.
	RetryCap uint32
	// RetryBaseMillis is the minimum retransmit interval in milliseconds.
	// Defaults to RetryBase (2) if zero.
	RetryBaseMillis uint32
}

// DefaultConfig returns the typical configuration from spec.md §6.
func DefaultConfig() Config {
	return Config{
		MaxData:         MaxData,
		QueueSize:       1024,
		RetryCap:        RetryCap,
		RetryBaseMillis: RetryBase,
	}
}

// withDefaults fills in zero fields with DefaultConfig's values, the way
// nrf24.NewWithHardware defaults an under-specified RadioConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxData == 0 {
		c.MaxData = d.MaxData
	}
	if c.QueueSize == 0 {
		c.QueueSize = d.QueueSize
	}
	if c.RetryCap == 0 {
		c.RetryCap = d.RetryCap
	}
	if c.RetryBaseMillis == 0 {
		c.RetryBaseMillis = d.RetryBaseMillis
	}
	return c
}

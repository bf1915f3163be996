package radiolink

// Pend is the pending-work hint the engine returns from Tick so the
// runtime-agnostic caller knows which side(s) to re-wake: the radio task,
// the UART task, both, or neither.
type Pend uint8

const (
	PendNothing Pend = iota
	PendRadio
	PendUart
	PendBoth
)

// Combine merges two pending-work hints, the way the engine's RX-handling
// half and TX-assembly half each produce one and the tick result is their
// union.
func (p Pend) Combine(other Pend) Pend {
	if p == other {
		return p
	}
	if p == PendNothing {
		return other
	}
	if other == PendNothing {
		return p
	}
	return PendBoth
}

func (p Pend) String() string {
	switch p {
	case PendNothing:
		return "nothing"
	case PendRadio:
		return "radio"
	case PendUart:
		return "uart"
	case PendBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Package radiolink implements a reliable link-layer protocol that bridges
// two UART-attached peers over a half-duplex, lossy, fixed-MTU radio.
//
// The package is split the way the driver it is adapted from is split: a
// portable core (this file and its siblings without a build tag) that has
// no hardware or OS dependency and can be built for TinyGo targets, plus
// concrete adapters gated by build tags for real radio and UART peripherals.
//
// The portable core is a cooperative, single-threaded state machine. Nothing
// in Engine, Queue, or the frame codec blocks or spawns goroutines; callers
// drive it by calling Tick whenever an external event may have changed its
// inputs (a frame arrived, a UART byte arrived, the tick counter advanced).
package radiolink

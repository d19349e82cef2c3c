package core

import "sync"

// DebugWriter is a function type for writing debug lines
type DebugWriter func(string)

// TraceEvent captures a link event for post-mortem analysis
type TraceEvent struct {
	EventType uint8  // Event type code
	Side      uint8  // Which half recorded it
	Clock     uint32 // Scheduler time at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtRoleChange     = 1 // Value1: old state, Value2: new state
	EvtTimeout        = 2 // Negotiation timeout fired
	EvtUsb            = 3 // Value1: 1 when USB came up
	EvtFrameDropped   = 4 // Value1: total dropped frames
	EvtTransferFailed = 5 // Transport reported a failed transfer
	EvtPanic          = 6 // Main loop recovered from a panic
)

const TraceRingSize = 32

var (
	debugPrintln DebugWriter = func(s string) {}

	traceMu   sync.Mutex
	traceRing [TraceRingSize]TraceEvent
	traceHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// RecordEvent stores an event in the trace ring, overwriting the oldest
func RecordEvent(eventType, side uint8, value1, value2 uint32) {
	traceMu.Lock()
	defer traceMu.Unlock()
	traceRing[traceHead] = TraceEvent{
		EventType: eventType,
		Side:      side,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
	traceHead = (traceHead + 1) % TraceRingSize
}

// TraceEvents returns the recorded events, oldest first
func TraceEvents() []TraceEvent {
	traceMu.Lock()
	defer traceMu.Unlock()
	var events []TraceEvent
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(traceHead+i)%TraceRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns a short label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtRoleChange:
		return "ROLE"
	case EvtTimeout:
		return "TIMEOUT"
	case EvtUsb:
		return "USB"
	case EvtFrameDropped:
		return "DROP"
	case EvtTransferFailed:
		return "TX_FAIL"
	case EvtPanic:
		return "PANIC!"
	default:
		return "UNKNOWN"
	}
}

// DumpTrace writes the trace ring through the debug writer
func DumpTrace() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, evt := range TraceEvents() {
		debugPrintln("[TRACE] " + EventName(evt.EventType) +
			" side=" + utoa(uint32(evt.Side)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTrace clears the trace ring
func ClearTrace() {
	traceMu.Lock()
	defer traceMu.Unlock()
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceHead = 0
}

package link

// InterruptResult tells whether a transport interrupt belonged to this
// transfer and how it ended.
type InterruptResult uint8

const (
	NotSet InterruptResult = iota
	Done
	Failed
)

func (r InterruptResult) String() string {
	switch r {
	case NotSet:
		return "not_set"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// TxTransport is an asynchronous transmitter with a single transfer buffer
type TxTransport interface {
	// Capacity returns the size of the transfer buffer
	Capacity() int

	// IsReady reports that no transfer is in flight
	IsReady() bool

	// Push lets fill write into the transfer buffer; fill returns the byte
	// count written. Fails with ErrTransferOngoing while busy.
	Push(fill func(buf []byte) int) error

	// Start begins transferring the pushed bytes without blocking
	Start() error

	// OnInterrupt services a completion interrupt
	OnInterrupt() InterruptResult
}

// RxTransport delivers received bytes as they arrive
type RxTransport interface {
	// OnInterrupt calls read with each newly available run of bytes
	OnInterrupt(read func(data []byte)) InterruptResult
}

// Port bundles both directions of one side of a link
type Port struct {
	Tx TxTransport
	Rx RxTransport
}

package respparser

// EventType tags a single logical parse event. The parser emits
// exactly one per call so that the connection state machine can
// "consume one logical event per I/O step" (spec.md §4.2).
type EventType int

const (
	EventNone EventType = iota
	EventStatus
	EventHeader
	EventHeadersComplete
	EventChunkHeader
	EventBody
)

// Event carries whichever fields are relevant to its Type. Grounded
// on dqx0-protocols/httpx/transport.go's readStatusLine/readHeaders
// return values, restructured from "parse everything and return it
// in one call" into "parse one pausable event at a time" per
// spec.md §4.2.
type Event struct {
	Type EventType

	// EventStatus
	Major, Minor int
	Code         int
	Reason       string

	// EventHeader
	Field string
	Value string

	// EventHeadersComplete
	ContentLength int64 // -1 if no valid Content-Length header was present, or if Chunked is set
	Chunked       bool

	// EventChunkHeader
	ChunkSize int64

	// EventBody
	Data []byte
}

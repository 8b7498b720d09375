package event

// Header keys attached by the reader when the corresponding options are
// enabled. DefaultFileNameHeaderKey can be overridden per configuration;
// the other two are fixed.
const (
	DefaultFileNameHeaderKey = "file"
	BasenameHeaderKey        = "basename"
	ByteOffsetHeaderKey      = "byteoffset"
)

// Event is a single decoded record with its provenance headers.
type Event struct {
	Body    []byte
	Headers map[string]string
}

// New returns an Event with an initialized header map.
func New(body []byte) Event {
	return Event{Body: body, Headers: make(map[string]string)}
}

// SetHeader sets a single header, allocating the map on first use.
func (e *Event) SetHeader(key, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
}

// MergeHeaders copies all entries of h into the event's headers.
func (e *Event) MergeHeaders(h map[string]string) {
	if len(h) == 0 {
		return
	}
	if e.Headers == nil {
		e.Headers = make(map[string]string, len(h))
	}
	for k, v := range h {
		e.Headers[k] = v
	}
}

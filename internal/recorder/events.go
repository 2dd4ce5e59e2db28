package recorder

import (
	"fmt"

	"github.com/yanun0323/errors"

	"main/internal/bus"
	"main/internal/codec"
	"main/internal/schema"
)

// AppendEvent journals one bus event, encoding its payload into
// scratch to avoid per-event allocations. The grown scratch buffer is
// returned for reuse. Events whose payload has no wire encoding are
// skipped without error.
func AppendEvent(w *Writer, e bus.Event, scratch []byte) ([]byte, error) {
	var instrumentID schema.InstrumentID
	switch payload := e.Payload.(type) {
	case schema.OrderBookDelta:
		instrumentID = payload.InstrumentID
		scratch = codec.EncodeBookDelta(scratch[:0], payload)
	case schema.OrderBookDeltas:
		instrumentID = payload.InstrumentID
		scratch = codec.EncodeBookDeltas(scratch[:0], payload)
	case schema.OrderBookDepth10:
		instrumentID = payload.InstrumentID
		scratch = codec.EncodeBookDepth10(scratch[:0], payload)
	case schema.OrderBookSnapshot:
		instrumentID = payload.InstrumentID
		scratch = codec.EncodeBookSnapshot(scratch[:0], payload)
	default:
		return scratch, nil
	}
	return scratch, w.TryAppend(e.Header, instrumentID, scratch)
}

// DecodeEvent turns a journal record back into the bus event that was
// recorded.
func DecodeEvent(rec Record) (bus.Event, error) {
	e := bus.Event{Header: rec.Header}
	switch rec.Header.Type {
	case schema.EventBookDelta:
		payload, ok := codec.DecodeBookDelta(rec.Payload)
		if !ok {
			return e, errors.New("journal: malformed delta frame")
		}
		e.Payload = payload
	case schema.EventBookDeltas:
		payload, ok := codec.DecodeBookDeltas(rec.Payload)
		if !ok {
			return e, errors.New("journal: malformed deltas frame")
		}
		e.Payload = payload
	case schema.EventBookDepth10:
		payload, ok := codec.DecodeBookDepth10(rec.Payload)
		if !ok {
			return e, errors.New("journal: malformed depth frame")
		}
		e.Payload = payload
	case schema.EventBookSnapshot:
		payload, ok := codec.DecodeBookSnapshot(rec.Payload)
		if !ok {
			return e, errors.New("journal: malformed snapshot frame")
		}
		e.Payload = payload
	default:
		return e, fmt.Errorf("journal: undecodable event type %d", rec.Header.Type)
	}
	return e, nil
}

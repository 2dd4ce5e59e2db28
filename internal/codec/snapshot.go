package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const SnapshotHeaderSize = 44

// EncodeBookSnapshot serializes a published snapshot: a fixed header
// followed by the bid then ask aggregates.
func EncodeBookSnapshot(dst []byte, snapshot schema.OrderBookSnapshot) []byte {
	size := SnapshotHeaderSize + (len(snapshot.Bids)+len(snapshot.Asks))*BookOrderSize
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(snapshot.InstrumentID))
	binary.LittleEndian.PutUint64(dst[4:12], snapshot.Sequence)
	binary.LittleEndian.PutUint64(dst[12:20], snapshot.UpdateCount)
	binary.LittleEndian.PutUint64(dst[20:28], uint64(snapshot.TsEvent))
	binary.LittleEndian.PutUint64(dst[28:36], uint64(snapshot.TsInit))
	binary.LittleEndian.PutUint32(dst[36:40], uint32(len(snapshot.Bids)))
	binary.LittleEndian.PutUint32(dst[40:44], uint32(len(snapshot.Asks)))

	offset := SnapshotHeaderSize
	for _, order := range snapshot.Bids {
		encodeBookOrder(dst[offset:offset+BookOrderSize], order)
		offset += BookOrderSize
	}
	for _, order := range snapshot.Asks {
		encodeBookOrder(dst[offset:offset+BookOrderSize], order)
		offset += BookOrderSize
	}
	return dst
}

// DecodeBookSnapshot parses a snapshot payload.
func DecodeBookSnapshot(src []byte) (schema.OrderBookSnapshot, bool) {
	if len(src) < SnapshotHeaderSize {
		return schema.OrderBookSnapshot{}, false
	}
	bidCount := int(binary.LittleEndian.Uint32(src[36:40]))
	askCount := int(binary.LittleEndian.Uint32(src[40:44]))
	if len(src) < SnapshotHeaderSize+(bidCount+askCount)*BookOrderSize {
		return schema.OrderBookSnapshot{}, false
	}

	snapshot := schema.OrderBookSnapshot{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Sequence:     binary.LittleEndian.Uint64(src[4:12]),
		UpdateCount:  binary.LittleEndian.Uint64(src[12:20]),
		TsEvent:      int64(binary.LittleEndian.Uint64(src[20:28])),
		TsInit:       int64(binary.LittleEndian.Uint64(src[28:36])),
	}

	offset := SnapshotHeaderSize
	if bidCount > 0 {
		snapshot.Bids = make([]schema.BookOrder, 0, bidCount)
		for i := 0; i < bidCount; i++ {
			snapshot.Bids = append(snapshot.Bids, decodeBookOrder(src[offset:offset+BookOrderSize]))
			offset += BookOrderSize
		}
	}
	if askCount > 0 {
		snapshot.Asks = make([]schema.BookOrder, 0, askCount)
		for i := 0; i < askCount; i++ {
			snapshot.Asks = append(snapshot.Asks, decodeBookOrder(src[offset:offset+BookOrderSize]))
			offset += BookOrderSize
		}
	}
	return snapshot, true
}

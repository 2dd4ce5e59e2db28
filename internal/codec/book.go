// Package codec serializes book events into fixed-layout little-endian
// frames for the recorder and for replay.
package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const (
	BookOrderSize        = 25
	BookDeltaPayloadSize = 56
	DeltasHeaderSize     = 8
	Depth10PayloadSize   = 30 + 2*schema.Depth10Len*BookOrderSize + 2*schema.Depth10Len*4
)

func encodeBookOrder(dst []byte, order schema.BookOrder) {
	dst[0] = uint8(order.Side)
	binary.LittleEndian.PutUint64(dst[1:9], uint64(order.Price))
	binary.LittleEndian.PutUint64(dst[9:17], uint64(order.Size))
	binary.LittleEndian.PutUint64(dst[17:25], order.OrderID)
}

func decodeBookOrder(src []byte) schema.BookOrder {
	return schema.BookOrder{
		Side:    schema.OrderSide(src[0]),
		Price:   schema.Price(int64(binary.LittleEndian.Uint64(src[1:9]))),
		Size:    schema.Quantity(int64(binary.LittleEndian.Uint64(src[9:17]))),
		OrderID: binary.LittleEndian.Uint64(src[17:25]),
	}
}

// EncodeBookDelta serializes one delta into a fixed-size payload.
func EncodeBookDelta(dst []byte, delta schema.OrderBookDelta) []byte {
	if cap(dst) < BookDeltaPayloadSize {
		dst = make([]byte, BookDeltaPayloadSize)
	} else {
		dst = dst[:BookDeltaPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(delta.InstrumentID))
	dst[4] = uint8(delta.Action)
	encodeBookOrder(dst[5:30], delta.Order)
	binary.LittleEndian.PutUint16(dst[30:32], delta.Flags)
	binary.LittleEndian.PutUint64(dst[32:40], delta.Sequence)
	binary.LittleEndian.PutUint64(dst[40:48], uint64(delta.TsEvent))
	binary.LittleEndian.PutUint64(dst[48:56], uint64(delta.TsInit))

	return dst
}

// DecodeBookDelta parses a fixed-size delta payload.
func DecodeBookDelta(src []byte) (schema.OrderBookDelta, bool) {
	if len(src) < BookDeltaPayloadSize {
		return schema.OrderBookDelta{}, false
	}
	return schema.OrderBookDelta{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Action:       schema.BookAction(src[4]),
		Order:        decodeBookOrder(src[5:30]),
		Flags:        binary.LittleEndian.Uint16(src[30:32]),
		Sequence:     binary.LittleEndian.Uint64(src[32:40]),
		TsEvent:      int64(binary.LittleEndian.Uint64(src[40:48])),
		TsInit:       int64(binary.LittleEndian.Uint64(src[48:56])),
	}, true
}

// EncodeBookDeltas serializes a delta batch: an 8-byte header followed
// by each delta's fixed payload.
func EncodeBookDeltas(dst []byte, deltas schema.OrderBookDeltas) []byte {
	size := DeltasHeaderSize + len(deltas.Deltas)*BookDeltaPayloadSize
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(deltas.InstrumentID))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(len(deltas.Deltas)))
	offset := DeltasHeaderSize
	for _, delta := range deltas.Deltas {
		EncodeBookDelta(dst[offset:offset+BookDeltaPayloadSize], delta)
		offset += BookDeltaPayloadSize
	}
	return dst
}

// DecodeBookDeltas parses a delta batch payload.
func DecodeBookDeltas(src []byte) (schema.OrderBookDeltas, bool) {
	if len(src) < DeltasHeaderSize {
		return schema.OrderBookDeltas{}, false
	}
	count := int(binary.LittleEndian.Uint32(src[4:8]))
	if len(src) < DeltasHeaderSize+count*BookDeltaPayloadSize {
		return schema.OrderBookDeltas{}, false
	}

	deltas := schema.OrderBookDeltas{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
	}
	if count > 0 {
		deltas.Deltas = make([]schema.OrderBookDelta, 0, count)
	}
	offset := DeltasHeaderSize
	for i := 0; i < count; i++ {
		delta, ok := DecodeBookDelta(src[offset : offset+BookDeltaPayloadSize])
		if !ok {
			return schema.OrderBookDeltas{}, false
		}
		deltas.Deltas = append(deltas.Deltas, delta)
		offset += BookDeltaPayloadSize
	}
	return deltas, true
}

// EncodeBookDepth10 serializes a depth snapshot into a fixed-size
// payload.
func EncodeBookDepth10(dst []byte, depth schema.OrderBookDepth10) []byte {
	if cap(dst) < Depth10PayloadSize {
		dst = make([]byte, Depth10PayloadSize)
	} else {
		dst = dst[:Depth10PayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(depth.InstrumentID))
	binary.LittleEndian.PutUint16(dst[4:6], depth.Flags)
	binary.LittleEndian.PutUint64(dst[6:14], depth.Sequence)
	binary.LittleEndian.PutUint64(dst[14:22], uint64(depth.TsEvent))
	binary.LittleEndian.PutUint64(dst[22:30], uint64(depth.TsInit))

	offset := 30
	for i := 0; i < schema.Depth10Len; i++ {
		encodeBookOrder(dst[offset:offset+BookOrderSize], depth.Bids[i])
		offset += BookOrderSize
	}
	for i := 0; i < schema.Depth10Len; i++ {
		encodeBookOrder(dst[offset:offset+BookOrderSize], depth.Asks[i])
		offset += BookOrderSize
	}
	for i := 0; i < schema.Depth10Len; i++ {
		binary.LittleEndian.PutUint32(dst[offset:offset+4], depth.BidCounts[i])
		offset += 4
	}
	for i := 0; i < schema.Depth10Len; i++ {
		binary.LittleEndian.PutUint32(dst[offset:offset+4], depth.AskCounts[i])
		offset += 4
	}
	return dst
}

// DecodeBookDepth10 parses a fixed-size depth snapshot payload.
func DecodeBookDepth10(src []byte) (schema.OrderBookDepth10, bool) {
	if len(src) < Depth10PayloadSize {
		return schema.OrderBookDepth10{}, false
	}

	depth := schema.OrderBookDepth10{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Flags:        binary.LittleEndian.Uint16(src[4:6]),
		Sequence:     binary.LittleEndian.Uint64(src[6:14]),
		TsEvent:      int64(binary.LittleEndian.Uint64(src[14:22])),
		TsInit:       int64(binary.LittleEndian.Uint64(src[22:30])),
	}

	offset := 30
	for i := 0; i < schema.Depth10Len; i++ {
		depth.Bids[i] = decodeBookOrder(src[offset : offset+BookOrderSize])
		offset += BookOrderSize
	}
	for i := 0; i < schema.Depth10Len; i++ {
		depth.Asks[i] = decodeBookOrder(src[offset : offset+BookOrderSize])
		offset += BookOrderSize
	}
	for i := 0; i < schema.Depth10Len; i++ {
		depth.BidCounts[i] = binary.LittleEndian.Uint32(src[offset : offset+4])
		offset += 4
	}
	for i := 0; i < schema.Depth10Len; i++ {
		depth.AskCounts[i] = binary.LittleEndian.Uint32(src[offset : offset+4])
		offset += 4
	}
	return depth, true
}

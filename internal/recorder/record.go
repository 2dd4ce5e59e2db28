package recorder

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

const (
	frameVersion      uint16 = 1
	frameHeaderSize          = 56
	frameChecksumSize        = 4
)

var (
	frameMagic = [4]byte{'M', 'D', 'J', '1'}
	crcTable   = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic           = errors.New("journal: invalid frame magic")
	ErrUnsupportedFrameVer    = errors.New("journal: unsupported frame version")
	ErrInvalidFrameHeaderSize = errors.New("journal: invalid frame header size")
	ErrChecksumMismatch       = errors.New("journal: frame checksum mismatch")
)

// Record is one journaled event: the bus header, the instrument the
// payload belongs to, and the codec-encoded payload bytes. Payload
// aliases the reader's scratch buffer and is only valid until the
// next read.
type Record struct {
	Header       schema.EventHeader
	InstrumentID schema.InstrumentID
	Payload      []byte
}

// Frame layout, little endian:
//
//	0:4   magic "MDJ1"
//	4:6   frame version
//	6:8   header size
//	8:10  event type
//	10:12 schema version
//	12:14 source
//	14:16 flags
//	16:20 payload length
//	20:28 sequence
//	28:36 ts event
//	36:44 ts recv
//	44:52 trace id
//	52:56 instrument id
//
// followed by the payload and a CRC32-C checksum over header+payload.
func encodeFrameHeader(dst []byte, header schema.EventHeader, instrumentID schema.InstrumentID, payloadLen int) {
	copy(dst[0:4], frameMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], frameVersion)
	binary.LittleEndian.PutUint16(dst[6:8], frameHeaderSize)
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Type))
	binary.LittleEndian.PutUint16(dst[10:12], header.Version)
	binary.LittleEndian.PutUint16(dst[12:14], header.Source)
	binary.LittleEndian.PutUint16(dst[14:16], header.Flags)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[20:28], header.Seq)
	binary.LittleEndian.PutUint64(dst[28:36], uint64(header.TsEvent))
	binary.LittleEndian.PutUint64(dst[36:44], uint64(header.TsRecv))
	binary.LittleEndian.PutUint64(dst[44:52], header.TraceID)
	binary.LittleEndian.PutUint32(dst[52:56], uint32(instrumentID))
}

func decodeFrameHeader(src []byte) (schema.EventHeader, schema.InstrumentID, uint32, error) {
	var header schema.EventHeader
	if [4]byte(src[0:4]) != frameMagic {
		return header, 0, 0, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(src[4:6]) != frameVersion {
		return header, 0, 0, ErrUnsupportedFrameVer
	}
	if binary.LittleEndian.Uint16(src[6:8]) != frameHeaderSize {
		return header, 0, 0, ErrInvalidFrameHeaderSize
	}

	header.Type = schema.EventType(binary.LittleEndian.Uint16(src[8:10]))
	header.Version = binary.LittleEndian.Uint16(src[10:12])
	header.Source = binary.LittleEndian.Uint16(src[12:14])
	header.Flags = binary.LittleEndian.Uint16(src[14:16])
	payloadLen := binary.LittleEndian.Uint32(src[16:20])
	header.Seq = binary.LittleEndian.Uint64(src[20:28])
	header.TsEvent = int64(binary.LittleEndian.Uint64(src[28:36]))
	header.TsRecv = int64(binary.LittleEndian.Uint64(src[36:44]))
	header.TraceID = binary.LittleEndian.Uint64(src[44:52])
	instrumentID := schema.InstrumentID(binary.LittleEndian.Uint32(src[52:56]))

	return header, instrumentID, payloadLen, nil
}

func frameChecksum(header, payload []byte) uint32 {
	sum := crc32.Update(0, crcTable, header)
	return crc32.Update(sum, crcTable, payload)
}

package recorder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"main/internal/schema"
)

const defaultMaxPayloadSize = 16 << 20

// ReaderOptions tunes frame decoding. Keep, when set, is consulted on
// the frame header alone; rejected frames are skipped without reading
// their payload into memory.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
	Keep            func(schema.EventHeader, schema.InstrumentID) bool
}

// Reader decodes journal frames from one segment stream.
type Reader struct {
	r    *bufio.Reader
	opts ReaderOptions

	header  [frameHeaderSize]byte
	payload []byte
}

func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = defaultMaxPayloadSize
	}
	return &Reader{r: bufio.NewReader(r), opts: opts}
}

// Next returns the next frame passing the Keep filter, or io.EOF at
// the end of the stream. The returned payload is reused on the next
// call.
func (r *Reader) Next() (Record, error) {
	for {
		if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return Record{}, fmt.Errorf("journal: truncated frame header: %w", err)
			}
			return Record{}, err
		}

		header, instrumentID, payloadLen, err := decodeFrameHeader(r.header[:])
		if err != nil {
			return Record{}, err
		}
		if int(payloadLen) > r.opts.MaxPayloadSize {
			return Record{}, fmt.Errorf("journal: payload length %d exceeds limit %d", payloadLen, r.opts.MaxPayloadSize)
		}

		if r.opts.Keep != nil && !r.opts.Keep(header, instrumentID) {
			if _, err := r.r.Discard(int(payloadLen) + frameChecksumSize); err != nil {
				return Record{}, fmt.Errorf("journal: truncated frame: %w", err)
			}
			continue
		}

		if cap(r.payload) < int(payloadLen) {
			r.payload = make([]byte, payloadLen)
		}
		r.payload = r.payload[:payloadLen]
		if _, err := io.ReadFull(r.r, r.payload); err != nil {
			return Record{}, fmt.Errorf("journal: truncated payload: %w", err)
		}

		var footer [frameChecksumSize]byte
		if _, err := io.ReadFull(r.r, footer[:]); err != nil {
			return Record{}, fmt.Errorf("journal: truncated checksum: %w", err)
		}
		if !r.opts.DisableChecksum {
			if binary.LittleEndian.Uint32(footer[:]) != frameChecksum(r.header[:], r.payload) {
				return Record{}, ErrChecksumMismatch
			}
		}

		return Record{Header: header, InstrumentID: instrumentID, Payload: r.payload}, nil
	}
}

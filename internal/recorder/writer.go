package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

const segmentExt = ".mdj"

var (
	ErrNotStarted      = errors.New("journal: writer not started")
	ErrWriterClosed    = errors.New("journal: writer closed")
	ErrAppendQueueFull = errors.New("journal: append queue full")
	ErrPayloadTooLarge = errors.New("journal: payload exceeds segment size")
)

type appendReq struct {
	header       schema.EventHeader
	instrumentID schema.InstrumentID
	payload      []byte
}

// Writer journals book events to size- and age-rotated segment files.
// Appends go through a bounded queue so publishers never block on
// disk; a sealed segment leaves a manifest beside it for playback.
type Writer struct {
	cfg Config

	queue   chan appendReq
	done    chan struct{}
	started atomic.Bool

	qmu    sync.RWMutex
	closed bool

	mu  sync.Mutex
	err error
}

func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	return &Writer{
		cfg:   cfg,
		queue: make(chan appendReq, cfg.QueueSize),
		done:  make(chan struct{}),
	}, nil
}

// Start launches the background goroutine that drains the append
// queue onto disk. It may be called once.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("journal: writer already started")
	}
	go w.run(ctx)
	return nil
}

// TryAppend enqueues one event frame. It never blocks; when the queue
// is full the frame is dropped and ErrAppendQueueFull returned. With
// CopyPayload unset the payload must stay untouched until Close.
func (w *Writer) TryAppend(header schema.EventHeader, instrumentID schema.InstrumentID, payload []byte) error {
	if !w.started.Load() {
		return ErrNotStarted
	}
	if int64(frameHeaderSize+len(payload)+frameChecksumSize) > w.cfg.SegmentMaxBytes {
		return ErrPayloadTooLarge
	}
	if w.cfg.CopyPayload {
		payload = append([]byte(nil), payload...)
	}

	// Read lock held across the send so Close cannot close the queue
	// under a concurrent append.
	w.qmu.RLock()
	defer w.qmu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- appendReq{header: header, instrumentID: instrumentID, payload: payload}:
		return nil
	default:
		return ErrAppendQueueFull
	}
}

// Close stops accepting frames, drains whatever is already queued,
// seals the open segment and returns the first write error, if any.
func (w *Writer) Close() error {
	if !w.started.Load() {
		return ErrNotStarted
	}
	w.qmu.Lock()
	if w.closed {
		w.qmu.Unlock()
		return w.Err()
	}
	w.closed = true
	close(w.queue)
	w.qmu.Unlock()

	<-w.done
	return w.Err()
}

// Err returns the first error hit by the background writer.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)

	var flushC, syncC <-chan time.Time
	if w.cfg.FlushInterval > 0 {
		ticker := time.NewTicker(w.cfg.FlushInterval)
		defer ticker.Stop()
		flushC = ticker.C
	}
	if w.cfg.SyncInterval > 0 {
		ticker := time.NewTicker(w.cfg.SyncInterval)
		defer ticker.Stop()
		syncC = ticker.C
	}

	seg := &segment{cfg: w.cfg}
	defer func() {
		if err := seg.seal(); err != nil {
			w.setErr(err)
		}
	}()

	for {
		select {
		case req, ok := <-w.queue:
			if !ok {
				return
			}
			if err := seg.append(req); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := seg.sync(); err != nil {
				w.setErr(err)
				return
			}
		case <-ctx.Done():
			// Drain frames already queued, then stop. Later appends
			// fail at TryAppend once the caller observes the context.
			for {
				select {
				case req, ok := <-w.queue:
					if !ok {
						return
					}
					if err := seg.append(req); err != nil {
						w.setErr(err)
						return
					}
				default:
					return
				}
			}
		}
	}
}

// segment is the open journal file plus the running manifest that is
// written beside it when the segment is sealed.
type segment struct {
	cfg Config

	file     *os.File
	buf      *bufio.Writer
	path     string
	size     int64
	openedAt time.Time
	seq      int
	manifest Manifest

	header [frameHeaderSize]byte
	footer [frameChecksumSize]byte
}

func (s *segment) append(req appendReq) error {
	frameSize := int64(frameHeaderSize + len(req.payload) + frameChecksumSize)
	if s.file != nil && s.rotateDue(frameSize) {
		if err := s.seal(); err != nil {
			return err
		}
	}
	if s.file == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	encodeFrameHeader(s.header[:], req.header, req.instrumentID, len(req.payload))
	binary.LittleEndian.PutUint32(s.footer[:], frameChecksum(s.header[:], req.payload))

	if _, err := s.buf.Write(s.header[:]); err != nil {
		return fmt.Errorf("journal: write frame header: %w", err)
	}
	if _, err := s.buf.Write(req.payload); err != nil {
		return fmt.Errorf("journal: write payload: %w", err)
	}
	if _, err := s.buf.Write(s.footer[:]); err != nil {
		return fmt.Errorf("journal: write checksum: %w", err)
	}

	s.size += frameSize
	s.manifest.observe(req.header, req.instrumentID)
	return nil
}

func (s *segment) rotateDue(frameSize int64) bool {
	if s.size+frameSize > s.cfg.SegmentMaxBytes {
		return true
	}
	if s.cfg.SegmentMaxDuration > 0 && time.Since(s.openedAt) >= s.cfg.SegmentMaxDuration {
		return true
	}
	return false
}

func (s *segment) open() error {
	now := time.Now().UTC()
	for {
		s.seq++
		name := fmt.Sprintf("%s-%s-%06d%s", s.cfg.FilePrefix, now.Format("20060102-150405"), s.seq, segmentExt)
		path := filepath.Join(s.cfg.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("journal: open segment: %w", err)
		}
		s.file = file
		s.path = path
		s.size = 0
		s.openedAt = now
		s.manifest = newManifest(name)
		if s.buf == nil {
			s.buf = bufio.NewWriterSize(file, s.cfg.BufferSize)
		} else {
			s.buf.Reset(file)
		}
		return nil
	}
}

// seal flushes and closes the open segment and writes its manifest.
func (s *segment) seal() error {
	if s.file == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("journal: flush segment: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync segment: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("journal: close segment: %w", err)
	}
	s.file = nil

	s.manifest.Bytes = s.size
	if err := writeManifest(s.path, s.manifest); err != nil {
		return fmt.Errorf("journal: write manifest: %w", err)
	}
	return nil
}

func (s *segment) flush() error {
	if s.file == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("journal: flush segment: %w", err)
	}
	return nil
}

func (s *segment) sync() error {
	if s.file == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("journal: flush segment: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync segment: %w", err)
	}
	return nil
}

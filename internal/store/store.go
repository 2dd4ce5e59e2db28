// Package store persists published order book snapshots to PostgreSQL
// for offline analysis and warm restarts.
package store

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"main/internal/codec"
	"main/internal/schema"
	"main/pkg/conn"
)

// SnapshotRow is one persisted snapshot publication. The book content is
// kept as the journal-frame encoding rather than relational rows: the
// store is an archive, not a query surface for individual levels.
type SnapshotRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	InstrumentID uint32 `gorm:"index:idx_snapshot_instrument_ts,priority:1"`
	Venue        string `gorm:"size:32"`
	Instrument   string `gorm:"size:64"`
	Sequence     uint64
	UpdateCount  uint64
	TsEvent      int64 `gorm:"index:idx_snapshot_instrument_ts,priority:2"`
	TsInit       int64
	Payload      []byte
	CreatedAt    time.Time
}

// TableName sets the table for gorm.
func (SnapshotRow) TableName() string {
	return "book_snapshots"
}

// SnapshotStore writes snapshot rows through a shared connection pool.
type SnapshotStore struct {
	client *conn.Client
}

// New wraps the connection pool.
func New(client *conn.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// Migrate creates or updates the snapshot table.
func (s *SnapshotStore) Migrate(ctx context.Context) error {
	if err := s.db(ctx).AutoMigrate(&SnapshotRow{}); err != nil {
		return errors.Wrap(err, "migrate book_snapshots")
	}
	return nil
}

// Save persists one published snapshot.
func (s *SnapshotStore) Save(ctx context.Context, venue, instrument string, snapshot schema.OrderBookSnapshot) error {
	row := SnapshotRow{
		InstrumentID: uint32(snapshot.InstrumentID),
		Venue:        venue,
		Instrument:   instrument,
		Sequence:     snapshot.Sequence,
		UpdateCount:  snapshot.UpdateCount,
		TsEvent:      snapshot.TsEvent,
		TsInit:       snapshot.TsInit,
		Payload:      codec.EncodeBookSnapshot(nil, snapshot),
	}
	if err := s.db(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "insert book snapshot")
	}
	return nil
}

// Latest returns the most recent snapshot for the instrument.
func (s *SnapshotStore) Latest(ctx context.Context, instrumentID schema.InstrumentID) (schema.OrderBookSnapshot, error) {
	var row SnapshotRow
	err := s.db(ctx).
		Where("instrument_id = ?", uint32(instrumentID)).
		Order("ts_event DESC").
		First(&row).Error
	if err != nil {
		return schema.OrderBookSnapshot{}, errors.Wrap(err, "query latest book snapshot")
	}

	snapshot, ok := codec.DecodeBookSnapshot(row.Payload)
	if !ok {
		return schema.OrderBookSnapshot{}, errors.Errorf("malformed snapshot payload for row %d", row.ID)
	}
	return snapshot, nil
}

// Range returns snapshots for the instrument within [fromTs, toTs],
// oldest first.
func (s *SnapshotStore) Range(ctx context.Context, instrumentID schema.InstrumentID, fromTs, toTs int64) ([]schema.OrderBookSnapshot, error) {
	var rows []SnapshotRow
	err := s.db(ctx).
		Where("instrument_id = ? AND ts_event BETWEEN ? AND ?", uint32(instrumentID), fromTs, toTs).
		Order("ts_event ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query book snapshot range")
	}

	snapshots := make([]schema.OrderBookSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, ok := codec.DecodeBookSnapshot(row.Payload)
		if !ok {
			return nil, errors.Errorf("malformed snapshot payload for row %d", row.ID)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (s *SnapshotStore) db(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

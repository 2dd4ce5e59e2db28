package recorder

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"main/internal/schema"
)

const manifestExt = ".meta"

// Manifest summarizes one sealed journal segment. Playback uses it to
// skip whole segments that cannot match a filter without reading a
// single frame.
type Manifest struct {
	Segment      string                      `json:"segment"`
	Records      uint64                      `json:"records"`
	Bytes        int64                       `json:"bytes"`
	FirstTsEvent int64                       `json:"firstTsEvent"`
	LastTsEvent  int64                       `json:"lastTsEvent"`
	EventCounts  map[schema.EventType]uint64 `json:"eventCounts"`
	Instruments  []schema.InstrumentID       `json:"instruments"`
}

func newManifest(segment string) Manifest {
	return Manifest{
		Segment:     segment,
		EventCounts: make(map[schema.EventType]uint64),
	}
}

func (m *Manifest) observe(header schema.EventHeader, instrumentID schema.InstrumentID) {
	if m.Records == 0 || header.TsEvent < m.FirstTsEvent {
		m.FirstTsEvent = header.TsEvent
	}
	if header.TsEvent > m.LastTsEvent {
		m.LastTsEvent = header.TsEvent
	}
	m.Records++
	m.EventCounts[header.Type]++

	for _, id := range m.Instruments {
		if id == instrumentID {
			return
		}
	}
	m.Instruments = append(m.Instruments, instrumentID)
}

// hasAnyEvent reports whether the segment holds at least one frame of
// any of the given types. An empty filter matches everything.
func (m Manifest) hasAnyEvent(types map[schema.EventType]struct{}) bool {
	if len(types) == 0 {
		return true
	}
	for t := range types {
		if m.EventCounts[t] > 0 {
			return true
		}
	}
	return false
}

// hasAnyInstrument reports whether the segment holds frames for any of
// the given instruments. An empty filter matches everything.
func (m Manifest) hasAnyInstrument(ids map[schema.InstrumentID]struct{}) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range m.Instruments {
		if _, ok := ids[id]; ok {
			return true
		}
	}
	return false
}

func manifestPath(segmentPath string) string {
	return strings.TrimSuffix(segmentPath, segmentExt) + manifestExt
}

func writeManifest(segmentPath string, m Manifest) error {
	sort.Slice(m.Instruments, func(i, j int) bool { return m.Instruments[i] < m.Instruments[j] })

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(manifestPath(segmentPath), raw, 0o644)
}

// loadManifest returns the sealed-segment summary next to segmentPath,
// or ok=false when none exists. A segment without a manifest (e.g. one
// cut short by a crash) is always replayed in full.
func loadManifest(segmentPath string) (Manifest, bool) {
	raw, err := os.ReadFile(manifestPath(segmentPath))
	if err != nil {
		return Manifest{}, false
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, false
	}
	return m, true
}

// Package ops loads the engine's JSON configuration and resolves it
// against the instrument registry.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"main/internal/schema"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Registry      RegistryConfig       `json:"registry"`
	Engine        EngineConfig         `json:"engine"`
	Subscriptions []SubscriptionConfig `json:"subscriptions"`
	Journal       JournalConfig        `json:"journal"`
	Store         StoreConfig          `json:"store"`
	Feed          FeedConfig           `json:"feed"`
}

// RegistryConfig defines venue and instrument mappings.
type RegistryConfig struct {
	Venues      []VenueConfig      `json:"venues"`
	Instruments []InstrumentConfig `json:"instruments"`
}

// VenueConfig describes a venue entry.
type VenueConfig struct {
	Name string `json:"name"`
}

// InstrumentConfig describes an instrument entry. Root defaults to the
// instrument name; an instrument whose name equals its root is treated
// as a composite parent.
type InstrumentConfig struct {
	Name     string           `json:"name"`
	Root     string           `json:"root"`
	Venue    string           `json:"venue"`
	Scale    schema.ScaleSpec `json:"scale"`
	BookType string           `json:"bookType"`
}

// EngineConfig tunes the data engine.
type EngineConfig struct {
	QueueCapacity  int    `json:"queueCapacity"`
	SnapshotDepth  int    `json:"snapshotDepth"`
	CheckIntegrity bool   `json:"checkIntegrity"`
	Source         uint16 `json:"source"`
}

// SubscriptionConfig describes the streams maintained for one
// instrument.
type SubscriptionConfig struct {
	Instrument          string  `json:"instrument"`
	BookDeltas          bool    `json:"bookDeltas"`
	BookDepth10         bool    `json:"bookDepth10"`
	SnapshotIntervalsMs []int64 `json:"snapshotIntervalsMs"`
}

// JournalConfig controls market data journaling.
type JournalConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

// StoreConfig controls snapshot persistence.
type StoreConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// FeedConfig controls the synthetic market data feed.
type FeedConfig struct {
	SeedFile   string `json:"seedFile"`
	RatePerSec int    `json:"ratePerSec"`
	Seed       int64  `json:"seed"`
}

// Subscription is a resolved subscription for one instrument.
type Subscription struct {
	InstrumentID      schema.InstrumentID
	BookDeltas        bool
	BookDepth10       bool
	SnapshotIntervals []time.Duration
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry      *schema.Registry
	Engine        EngineConfig
	Subscriptions []Subscription
	Journal       JournalConfig
	Store         StoreConfig
	Feed          FeedConfig
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}

	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}
	subscriptions, err := resolveSubscriptions(cfg.Subscriptions, registry)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Registry:      registry,
		Engine:        cfg.Engine,
		Subscriptions: subscriptions,
		Journal:       cfg.Journal,
		Store:         cfg.Store,
		Feed:          cfg.Feed,
	}, nil
}

// LoadRegistry reads a JSON config file and only builds the registry.
func LoadRegistry(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return buildRegistry(cfg.Registry)
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, venue := range cfg.Venues {
		if _, err := reg.AddVenue(venue.Name); err != nil {
			return nil, err
		}
	}
	for _, inst := range cfg.Instruments {
		venueID, ok := reg.VenueIDByName(inst.Venue)
		if !ok {
			return nil, fmt.Errorf("venue not found: %s", inst.Venue)
		}
		if err := validateScale(inst.Scale); err != nil {
			return nil, fmt.Errorf("invalid scale for %s: %w", inst.Name, err)
		}
		bookType, err := parseBookType(inst.BookType)
		if err != nil {
			return nil, fmt.Errorf("invalid bookType for %s: %w", inst.Name, err)
		}
		if _, err := reg.AddInstrument(inst.Name, inst.Root, venueID, inst.Scale, bookType); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func parseBookType(s string) (schema.BookType, error) {
	switch s {
	case "L1_MBP":
		return schema.BookTypeL1MBP, nil
	case "", "L2_MBP":
		return schema.BookTypeL2MBP, nil
	case "L3_MBO":
		return schema.BookTypeL3MBO, nil
	default:
		return 0, fmt.Errorf("unknown book type %q", s)
	}
}

func validateScale(scale schema.ScaleSpec) error {
	if scale.PriceScale < 0 || scale.QuantityScale < 0 {
		return fmt.Errorf("scale must be >= 0")
	}
	return nil
}

func resolveSubscriptions(cfgs []SubscriptionConfig, reg *schema.Registry) ([]Subscription, error) {
	subscriptions := make([]Subscription, 0, len(cfgs))
	for _, cfg := range cfgs {
		instrumentID, ok := reg.InstrumentIDByName(cfg.Instrument)
		if !ok {
			return nil, fmt.Errorf("subscription instrument not found: %s", cfg.Instrument)
		}

		sub := Subscription{
			InstrumentID: instrumentID,
			BookDeltas:   cfg.BookDeltas,
			BookDepth10:  cfg.BookDepth10,
		}
		for _, intervalMs := range cfg.SnapshotIntervalsMs {
			if intervalMs <= 0 {
				return nil, fmt.Errorf("snapshot interval must be > 0 for %s", cfg.Instrument)
			}
			sub.SnapshotIntervals = append(sub.SnapshotIntervals, time.Duration(intervalMs)*time.Millisecond)
		}
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, nil
}

package heap

import "github.com/joshuapare/heapkit/internal/format"

// SizeClassConfig defines the segregated bucket layout.
// Bucket i holds free blocks with sizes in [2^(MinShift+i), 2^(MinShift+i+1));
// the last bucket holds everything larger.
type SizeClassConfig struct {
	// Name for this configuration (for reports)
	Name string

	// NumClasses is the number of buckets (K).
	NumClasses int

	// MinShift is log2 of the lower bound of the first bucket.
	MinShift int
}

// Predefined configurations.
var (
	// Compact: few buckets, top bucket starts at 8KB.
	ConfigCompact = SizeClassConfig{
		Name:       "Compact",
		NumClasses: 10,
		MinShift:   4,
	}

	// Default: 16 buckets from 16B up to a 512KB+ catch-all.
	ConfigDefault = SizeClassConfig{
		Name:       "Default",
		NumClasses: 16,
		MinShift:   4,
	}

	// Wide: 20 buckets, for workloads with many multi-megabyte blocks.
	ConfigWide = SizeClassConfig{
		Name:       "Wide",
		NumClasses: 20,
		MinShift:   4,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigDefault
)

// Validate reports whether the configuration describes a usable bucket table.
func (c SizeClassConfig) Validate() error {
	return format.Header{NumClasses: c.NumClasses, MinShift: c.MinShift}.Validate()
}

// sizeClassTable resolves block sizes to buckets for one heap.
type sizeClassTable struct {
	config SizeClassConfig
	layout format.Header
}

// newSizeClassTable validates config and builds its table.
func newSizeClassTable(config SizeClassConfig) (*sizeClassTable, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	layout := format.Header{NumClasses: config.NumClasses, MinShift: config.MinShift}
	return &sizeClassTable{config: config, layout: layout}, nil
}

// getSizeClass returns the bucket index for a block size.
func (t *sizeClassTable) getSizeClass(size uint32) int {
	return format.SizeClass(size, t.layout.MinShift, t.layout.NumClasses)
}

// String returns the configuration name.
func (t *sizeClassTable) String() string {
	return t.config.Name
}

// NumClasses returns the number of buckets.
func (t *sizeClassTable) NumClasses() int {
	return t.layout.NumClasses
}

// ClassRange describes the sizes one bucket accepts. Hi is 0 for the
// unbounded top bucket.
type ClassRange struct {
	Class int
	Lo    uint64
	Hi    uint64
}

// Classes lists the bucket ranges of a configuration.
func (c SizeClassConfig) Classes() []ClassRange {
	out := make([]ClassRange, 0, c.NumClasses)
	for i := range c.NumClasses {
		lo, hi := format.ClassBounds(i, c.MinShift, c.NumClasses)
		out = append(out, ClassRange{Class: i, Lo: lo, Hi: hi})
	}
	return out
}

package snapshot

import (
	"bufio"
	"os"
	"sync"
)

// RecordKind identifies what a snapshot record holds
type RecordKind uint8

const (
	// KindPartition is a single flat partition
	KindPartition RecordKind = iota + 1
	// KindHierarchyLevel is one level of an aggregation hierarchy
	KindHierarchyLevel
	// KindProfileEntry is one entry of a resolution profile
	KindProfileEntry
)

// Magic marks the start of a snapshot file
const Magic uint32 = 0x43534E50 // "CSNP"

// Version is the current snapshot file format version
const Version uint32 = 1

// Record is one decoded snapshot record
type Record struct {
	Seq       uint64
	Kind      RecordKind
	Data      []byte
	Checksum  uint32
	Timestamp int64
}

// PartitionRecord is the payload of every record kind
type PartitionRecord struct {
	Resolution float64 `json:"resolution"`
	Quality    float64 `json:"quality"`
	Stable     bool    `json:"stable"`
	Level      int     `json:"level,omitempty"`
	Membership []int   `json:"membership"`
}

// Writer appends snappy-compressed records to a snapshot file
type Writer struct {
	file    *os.File
	writer  *bufio.Writer
	path    string
	nextSeq uint64
	mu      sync.Mutex

	// Statistics
	totalWrites       uint64
	bytesUncompressed uint64
	bytesCompressed   uint64
}

// WriterStats holds compression statistics
type WriterStats struct {
	TotalWrites       uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // e.g., 0.75 = 75% compression
}

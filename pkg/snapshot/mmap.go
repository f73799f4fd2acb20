package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// MappedReader reads snapshot records via memory-mapped I/O. Opening
// scans the file once to index record offsets; record payloads are then
// decoded on demand without reading the rest of the file.
type MappedReader struct {
	path    string
	mmap    *mmap.ReaderAt
	offsets []int64
	kinds   []RecordKind
}

const recordFixedOverhead = 8 + 1 + 4 + 4 + 8 // seq, kind, dataLen, checksum, timestamp

// OpenMapped opens a snapshot file using memory-mapped I/O
func OpenMapped(path string) (*MappedReader, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	headerBuf := make([]byte, 8)
	if _, err := reader.ReadAt(headerBuf, 0); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if err := readHeader(bytes.NewReader(headerBuf)); err != nil {
		_ = reader.Close()
		return nil, err
	}

	mr := &MappedReader{
		path: path,
		mmap: reader,
	}

	// Index record offsets
	pos := int64(8)
	size := int64(reader.Len())
	lenBuf := make([]byte, 4)
	for pos < size {
		if pos+recordFixedOverhead > size {
			_ = reader.Close()
			return nil, fmt.Errorf("truncated record at offset %d", pos)
		}

		kindBuf := make([]byte, 1)
		if _, err := reader.ReadAt(kindBuf, pos+8); err != nil {
			_ = reader.Close()
			return nil, err
		}

		if _, err := reader.ReadAt(lenBuf, pos+9); err != nil {
			_ = reader.Close()
			return nil, err
		}
		dataLen := binary.BigEndian.Uint32(lenBuf)

		next := pos + recordFixedOverhead + int64(dataLen)
		if next > size {
			_ = reader.Close()
			return nil, fmt.Errorf("truncated record at offset %d", pos)
		}

		mr.offsets = append(mr.offsets, pos)
		mr.kinds = append(mr.kinds, RecordKind(kindBuf[0]))
		pos = next
	}

	return mr, nil
}

// Count returns the number of records in the file
func (mr *MappedReader) Count() int {
	return len(mr.offsets)
}

// Kind returns the kind of record i without decoding its payload
func (mr *MappedReader) Kind(i int) (RecordKind, error) {
	if i < 0 || i >= len(mr.kinds) {
		return 0, fmt.Errorf("record index %d out of range", i)
	}
	return mr.kinds[i], nil
}

// Record reads, verifies, and decompresses record i
func (mr *MappedReader) Record(i int) (*Record, error) {
	if i < 0 || i >= len(mr.offsets) {
		return nil, fmt.Errorf("record index %d out of range", i)
	}

	pos := mr.offsets[i]

	fixed := make([]byte, 13)
	if _, err := mr.mmap.ReadAt(fixed, pos); err != nil {
		return nil, err
	}

	rec := &Record{
		Seq:  binary.BigEndian.Uint64(fixed[0:8]),
		Kind: RecordKind(fixed[8]),
	}
	dataLen := binary.BigEndian.Uint32(fixed[9:13])

	compressed := make([]byte, dataLen)
	if _, err := mr.mmap.ReadAt(compressed, pos+13); err != nil {
		return nil, err
	}

	tail := make([]byte, 12)
	if _, err := mr.mmap.ReadAt(tail, pos+13+int64(dataLen)); err != nil {
		return nil, err
	}
	rec.Checksum = binary.BigEndian.Uint32(tail[0:4])
	rec.Timestamp = int64(binary.BigEndian.Uint64(tail[4:12]))

	if crc32.ChecksumIEEE(compressed) != rec.Checksum {
		return nil, fmt.Errorf("checksum mismatch for record %d", rec.Seq)
	}

	decompressed, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress record %d: %w", rec.Seq, err)
	}
	rec.Data = decompressed

	return rec, nil
}

// Partition decodes the payload of record i
func (mr *MappedReader) Partition(i int) (PartitionRecord, error) {
	rec, err := mr.Record(i)
	if err != nil {
		return PartitionRecord{}, err
	}

	var p PartitionRecord
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return PartitionRecord{}, fmt.Errorf("failed to decode record %d: %w", rec.Seq, err)
	}
	return p, nil
}

// Close closes the memory-mapped file
func (mr *MappedReader) Close() error {
	if mr.mmap != nil {
		return mr.mmap.Close()
	}
	return nil
}

// Ensure MappedReader implements common interface
var _ io.Closer = (*MappedReader)(nil)

package snapshot

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
)

// NewWriter creates a snapshot file, truncating any existing file at path
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}

	w := &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}

	if err := w.writeHeader(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to write snapshot header: %w", err)
	}

	return w, nil
}

// writeHeader writes the file header: [Magic:4][Version:4]
func (w *Writer) writeHeader() error {
	if err := binary.Write(w.writer, binary.BigEndian, Magic); err != nil {
		return err
	}
	if err := binary.Write(w.writer, binary.BigEndian, Version); err != nil {
		return err
	}
	return w.writer.Flush()
}

// Append compresses and appends one record, returning its sequence number
func (w *Writer) Append(kind RecordKind, data []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextSeq++
	seq := w.nextSeq

	compressed := snappy.Encode(nil, data)

	rec := Record{
		Seq:       seq,
		Kind:      kind,
		Data:      compressed,
		Checksum:  crc32.ChecksumIEEE(compressed),
		Timestamp: time.Now().Unix(),
	}

	w.totalWrites++
	w.bytesUncompressed += uint64(len(data))
	w.bytesCompressed += uint64(len(compressed))

	return seq, w.writeRecord(&rec)
}

// AppendPartition encodes and appends one partition payload
func (w *Writer) AppendPartition(kind RecordKind, rec PartitionRecord) (uint64, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode partition record: %w", err)
	}
	return w.Append(kind, data)
}

// writeRecord writes one record to disk
// Format: [Seq:8][Kind:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
func (w *Writer) writeRecord(rec *Record) error {
	if err := binary.Write(w.writer, binary.BigEndian, rec.Seq); err != nil {
		return err
	}

	if err := w.writer.WriteByte(byte(rec.Kind)); err != nil {
		return err
	}

	dataLen := uint32(len(rec.Data))
	if err := binary.Write(w.writer, binary.BigEndian, dataLen); err != nil {
		return err
	}

	if _, err := w.writer.Write(rec.Data); err != nil {
		return err
	}

	if err := binary.Write(w.writer, binary.BigEndian, rec.Checksum); err != nil {
		return err
	}

	if err := binary.Write(w.writer, binary.BigEndian, rec.Timestamp); err != nil {
		return err
	}

	return w.writer.Flush()
}

// Flush flushes buffered records to disk
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the snapshot file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}

	if err := w.file.Sync(); err != nil {
		return err
	}

	return w.file.Close()
}

// Stats returns compression statistics
func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	compressionRatio := 0.0
	if w.bytesUncompressed > 0 {
		compressionRatio = 1.0 - (float64(w.bytesCompressed) / float64(w.bytesUncompressed))
	}

	return WriterStats{
		TotalWrites:       w.totalWrites,
		BytesUncompressed: w.bytesUncompressed,
		BytesCompressed:   w.bytesCompressed,
		CompressionRatio:  compressionRatio,
	}
}

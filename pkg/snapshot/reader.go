package snapshot

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"
)

// ReadAll reads and decompresses every record in a snapshot file
func ReadAll(path string) ([]*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	if err := readHeader(reader); err != nil {
		return nil, err
	}

	records := make([]*Record, 0)

	for {
		rec := &Record{}

		if err := binary.Read(reader, binary.BigEndian, &rec.Seq); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		kindByte, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		rec.Kind = RecordKind(kindByte)

		var dataLen uint32
		if err := binary.Read(reader, binary.BigEndian, &dataLen); err != nil {
			return nil, err
		}

		compressed := make([]byte, dataLen)
		if _, err := io.ReadFull(reader, compressed); err != nil {
			return nil, err
		}

		decompressed, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress record %d: %w", rec.Seq, err)
		}
		rec.Data = decompressed

		if err := binary.Read(reader, binary.BigEndian, &rec.Checksum); err != nil {
			return nil, err
		}

		// Checksum covers the compressed bytes
		if crc32.ChecksumIEEE(compressed) != rec.Checksum {
			return nil, fmt.Errorf("checksum mismatch for record %d", rec.Seq)
		}

		if err := binary.Read(reader, binary.BigEndian, &rec.Timestamp); err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

// ReadPartitions reads a snapshot file and decodes every payload
func ReadPartitions(path string) ([]PartitionRecord, error) {
	records, err := ReadAll(path)
	if err != nil {
		return nil, err
	}

	parts := make([]PartitionRecord, 0, len(records))
	for _, rec := range records {
		var p PartitionRecord
		if err := json.Unmarshal(rec.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", rec.Seq, err)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// readHeader validates [Magic:4][Version:4]
func readHeader(r io.Reader) error {
	var magic, version uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if magic != Magic {
		return fmt.Errorf("invalid snapshot magic: %x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return fmt.Errorf("failed to read snapshot version: %w", err)
	}
	if version != Version {
		return fmt.Errorf("unsupported snapshot version: %d", version)
	}
	return nil
}

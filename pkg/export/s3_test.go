package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-community/pkg/resultstore"
)

// fakePutter records uploads instead of talking to S3
type fakePutter struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, *params.Key)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

// newTestExporter builds an exporter around a fake client
func newTestExporter(t *testing.T, fake *fakePutter, prefix string) *Exporter {
	t.Helper()

	cfg := Config{Bucket: "results", Region: "eu-west-1", Prefix: prefix}
	return newWithClient(fake, cfg, nil, nil)
}

// TestConfigValidate tests exporter configuration checks
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{"Valid minimal", Config{Bucket: "b", Region: "r"}, false},
		{"Valid with static creds", Config{Bucket: "b", Region: "r", AccessKey: "a", SecretKey: "s"}, false},
		{"Missing bucket", Config{Region: "r"}, true},
		{"Missing region", Config{Bucket: "b"}, true},
		{"Access key without secret", Config{Bucket: "b", Region: "r", AccessKey: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

// TestExportResult tests uploading a job result
func TestExportResult(t *testing.T) {
	fake := &fakePutter{}
	e := newTestExporter(t, fake, "archive")

	result := &resultstore.JobResult{
		ID:          "job-42",
		Kind:        resultstore.KindDetect,
		Status:      resultstore.StatusCompleted,
		Quality:     3.5,
		Communities: 4,
		Membership:  []int{0, 1, 1, 2, 3},
	}

	if err := e.ExportResult(context.Background(), result); err != nil {
		t.Fatalf("Failed to export result: %v", err)
	}

	if len(fake.keys) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(fake.keys))
	}
	if fake.keys[0] != "archive/results/job-42.json" {
		t.Errorf("Key = %q, want archive/results/job-42.json", fake.keys[0])
	}
	if !strings.Contains(string(fake.bodies[0]), `"communities":4`) {
		t.Errorf("Body missing community count: %s", fake.bodies[0])
	}
}

// TestExportResultNil tests the nil result path
func TestExportResultNil(t *testing.T) {
	e := newTestExporter(t, &fakePutter{}, "")

	if err := e.ExportResult(context.Background(), nil); err == nil {
		t.Error("Expected error for nil result")
	}
}

// TestExportSnapshot tests uploading a snapshot file
func TestExportSnapshot(t *testing.T) {
	fake := &fakePutter{}
	e := newTestExporter(t, fake, "")

	tmpDir := t.TempDir()
	snapPath := filepath.Join(tmpDir, "run-7.snap")
	if err := os.WriteFile(snapPath, []byte("snapshot bytes"), 0644); err != nil {
		t.Fatalf("Failed to write snapshot file: %v", err)
	}

	if err := e.ExportSnapshot(context.Background(), snapPath); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	if len(fake.keys) != 1 || fake.keys[0] != "snapshots/run-7.snap" {
		t.Errorf("Keys = %v, want [snapshots/run-7.snap]", fake.keys)
	}
	if string(fake.bodies[0]) != "snapshot bytes" {
		t.Errorf("Body = %q, want snapshot bytes", fake.bodies[0])
	}
}

// TestExportSnapshotMissingFile tests the missing file path
func TestExportSnapshotMissingFile(t *testing.T) {
	e := newTestExporter(t, &fakePutter{}, "")

	if err := e.ExportSnapshot(context.Background(), "/does/not/exist.snap"); err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestExportUploadFailure tests error propagation from the client
func TestExportUploadFailure(t *testing.T) {
	fake := &fakePutter{err: errors.New("access denied")}
	e := newTestExporter(t, fake, "")

	result := &resultstore.JobResult{ID: "job-1"}
	err := e.ExportResult(context.Background(), result)
	if err == nil {
		t.Fatal("Expected upload error")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Expected wrapped client error, got: %v", err)
	}
}

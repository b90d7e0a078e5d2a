package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleArtifact() *entity.DocumentArtifact {
	return &entity.DocumentArtifact{
		Source:    "dof",
		IssueDate: "2025-08-14",
		Edition:   "matutina",
		Section:   entity.SectionInfo{Start: 2, End: 3, Method: "index"},
		Records:   []*entity.Licitacion{{Source: "dof", ContentHash: "abc"}},
	}
}

func TestFSSinkWritesJSON(t *testing.T) {
	dir := t.TempDir()
	loc, err := NewFSSink(dir, discard()).Put(context.Background(), sampleArtifact())
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := filepath.Join(dir, "dof", "2025-08-14_matutina.json")
	if loc != want {
		t.Fatalf("location = %s, want %s", loc, want)
	}
	b, err := os.ReadFile(loc)
	if err != nil {
		t.Fatal(err)
	}
	var got entity.DocumentArtifact
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Section.Method != "index" || len(got.Records) != 1 {
		t.Fatalf("artifact = %+v", got)
	}
}

type fakeS3 struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3SinkKey(t *testing.T) {
	fake := &fakeS3{}
	sink := newS3Sink(fake, S3Config{Bucket: "tenders", Prefix: "licitaciones/"}, discard())
	loc, err := sink.Put(context.Background(), sampleArtifact())
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if loc != "s3://tenders/licitaciones/dof/2025-08-14_matutina.json" {
		t.Fatalf("location = %s", loc)
	}
	if aws.ToString(fake.in.Bucket) != "tenders" || aws.ToString(fake.in.ContentType) != "application/json" {
		t.Fatalf("input = %+v", fake.in)
	}

	fake.err = errors.New("denied")
	if _, err := sink.Put(context.Background(), sampleArtifact()); err == nil {
		t.Fatalf("expected error")
	}
}

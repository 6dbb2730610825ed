package backend

import (
	"context"
	"testing"
)

func TestLocalFS_ImplementsBackend(t *testing.T) {
	var _ Backend = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte("cassette bytes")

	if err := fs.Write(ctx, "suite/test1.yaml", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "suite/test1.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "missing.yaml")
	if exists {
		t.Error("expected false for missing cassette")
	}

	fs.Write(ctx, "present.yaml", []byte("data"))
	exists, _ = fs.Exists(ctx, "present.yaml")
	if !exists {
		t.Error("expected true for stored cassette")
	}
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "suite_a/t1.yaml", []byte("1"))
	fs.Write(ctx, "suite_a/t2.yaml", []byte("2"))
	fs.Write(ctx, "suite_b/t3.yaml", []byte("3"))

	names, err := fs.List(ctx, "suite_a/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 names, got %d: %v", len(names), names)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "gone.yaml", []byte("data"))
	fs.Delete(ctx, "gone.yaml")

	exists, _ := fs.Exists(ctx, "gone.yaml")
	if exists {
		t.Error("cassette should be deleted")
	}
}

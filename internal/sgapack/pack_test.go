package sgapack_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sgafs"
	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sgapack"
)

func buildAndOpen(t *testing.T, setup func(fs *sgafs.FS)) (*sga.Archive, *sgafs.FS) {
	t.Helper()

	fs := sgafs.NewEmpty()
	if err := fs.CreateDrive("data", "Data", false); err != nil {
		t.Fatalf("CreateDrive: %v", err)
	}
	setup(fs)

	snapshot, err := fs.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	ws, err := sgapack.Pack(snapshot, sgapack.Options{ArchiveName: "test.sga"})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	br := ws.BytesReader()
	archive, err := sga.Open(br, br.Size())
	if err != nil {
		t.Fatalf("sga.Open: %v", err)
	}

	readBack, err := sgafs.New(archive)
	if err != nil {
		t.Fatalf("sgafs.New: %v", err)
	}
	return archive, readBack
}

func TestRoundTripEmptyArchive(t *testing.T) {
	archive, fs := buildAndOpen(t, func(fs *sgafs.FS) {})

	if archive.ArchiveName() != "test.sga" {
		t.Errorf("ArchiveName = %q, want %q", archive.ArchiveName(), "test.sga")
	}
	if archive.FileCount() != 0 {
		t.Errorf("FileCount = %d, want 0", archive.FileCount())
	}
	if archive.FolderCount() != 1 {
		t.Errorf("FolderCount = %d, want 1 (the drive root)", archive.FolderCount())
	}

	tocOK, err := archive.VerifyTOC()
	if err != nil {
		t.Fatalf("VerifyTOC: %v", err)
	}
	if !tocOK {
		t.Error("expected TOC MD5 to verify on a freshly packed empty archive")
	}
	fileOK, err := archive.VerifyFile()
	if err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
	if !fileOK {
		t.Error("expected file MD5 to verify on a freshly packed empty archive")
	}

	names, err := fs.ListDir("data:/")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected an empty root, got %v", names)
	}
}

func TestRoundTripSingleFileStore(t *testing.T) {
	_, fs := buildAndOpen(t, func(fs *sgafs.FS) {
		h, err := fs.OpenBin("data:/hi.txt", sgafs.ModeWrite)
		if err != nil {
			t.Fatalf("OpenBin: %v", err)
		}
		if _, err := h.Write([]byte("hi\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	rh, err := fs.OpenBin("data:/hi.txt", sgafs.ModeRead)
	if err != nil {
		t.Fatalf("OpenBin: %v", err)
	}
	got, err := io.ReadAll(rh)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hi\n" {
		t.Fatalf("payload = %q, want %q", got, "hi\n")
	}

	info, err := fs.GetInfo("data:/hi.txt", sgafs.NamespaceEssence)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.CRC32 != 0xD86AB30B {
		t.Fatalf("CRC32 = %#x, want 0xD86AB30B", info.CRC32)
	}

	ok, err := fs.VerifyCRC32("data:/hi.txt", false)
	if err != nil {
		t.Fatalf("VerifyCRC32: %v", err)
	}
	if !ok {
		t.Fatal("expected a round-tripped file's CRC32 to verify")
	}
}

func TestRoundTripDeflateCompression(t *testing.T) {
	payload := bytes.Repeat([]byte{'A'}, 10000)
	st := sga.StorageDeflateBuffer

	archive, fs := buildAndOpen(t, func(fs *sgafs.FS) {
		h, err := fs.OpenBin("data:/big.bin", sgafs.ModeWrite)
		if err != nil {
			t.Fatalf("OpenBin: %v", err)
		}
		if _, err := h.Write(payload); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := fs.SetInfo("data:/big.bin", sgafs.SetInfo{StorageType: &st}); err != nil {
			t.Fatalf("SetInfo: %v", err)
		}
	})

	if archive.FileCount() != 1 {
		t.Fatalf("FileCount = %d, want 1", archive.FileCount())
	}
	rec, err := archive.FileRecord(0)
	if err != nil {
		t.Fatalf("FileRecord: %v", err)
	}
	if rec.StorageType() != sga.StorageDeflateBuffer {
		t.Fatalf("StorageType = %v, want DeflateBuffer", rec.StorageType())
	}
	if rec.CompressedSize >= rec.DecompressedSize {
		t.Fatalf("compressed size %d should be smaller than decompressed size %d for 10000 repeated bytes",
			rec.CompressedSize, rec.DecompressedSize)
	}

	info, err := fs.GetInfo("data:/big.bin", sgafs.NamespaceEssence)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.CRC32 != 0x59929F8F {
		t.Fatalf("CRC32 = %#x, want 0x59929F8F", info.CRC32)
	}

	rh, err := fs.OpenBin("data:/big.bin", sgafs.ModeRead)
	if err != nil {
		t.Fatalf("OpenBin: %v", err)
	}
	got, err := io.ReadAll(rh)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("decompressed round trip did not reproduce the original payload")
	}
}

func TestRoundTripCRC32MismatchDetected(t *testing.T) {
	_, fs := buildAndOpen(t, func(fs *sgafs.FS) {
		h, err := fs.OpenBin("data:/hi.txt", sgafs.ModeWrite)
		if err != nil {
			t.Fatalf("OpenBin: %v", err)
		}
		if _, err := h.Write([]byte("hi\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	bad := uint32(0xD86AB30B) ^ 1
	if err := fs.SetInfo("data:/hi.txt", sgafs.SetInfo{CRC32: &bad}); err != nil {
		t.Fatalf("SetInfo: %v", err)
	}

	ok, err := fs.VerifyCRC32("data:/hi.txt", false)
	if err != nil {
		t.Fatalf("VerifyCRC32: %v", err)
	}
	if ok {
		t.Fatal("expected a tampered CRC32 to fail verification")
	}

	_, err = fs.VerifyCRC32("data:/hi.txt", true)
	if !errors.Is(err, sga.ErrCrc32Mismatch) {
		t.Fatalf("expected ErrCrc32Mismatch, got %v", err)
	}
}

func TestRoundTripPathCollision(t *testing.T) {
	_, fs := buildAndOpen(t, func(fs *sgafs.FS) {
		if err := fs.MakeDir("data:/units", false); err != nil {
			t.Fatalf("MakeDir: %v", err)
		}
	})

	if err := fs.MakeDir("data:/units", false); !errors.Is(err, sga.ErrDirectoryExists) {
		t.Fatalf("expected ErrDirectoryExists on a re-read archive, got %v", err)
	}
	if err := fs.MakeDir("data:/units", true); err != nil {
		t.Fatalf("MakeDir with recreate=true should succeed: %v", err)
	}
}

func TestPackToFileWritesReadableArchive(t *testing.T) {
	fs := sgafs.NewEmpty()
	if err := fs.CreateDrive("data", "Data", false); err != nil {
		t.Fatalf("CreateDrive: %v", err)
	}
	h, err := fs.OpenBin("data:/hi.txt", sgafs.ModeWrite)
	if err != nil {
		t.Fatalf("OpenBin: %v", err)
	}
	if _, err := h.Write([]byte("hi\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	snapshot, err := fs.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.sga")
	if err := sgapack.PackToFile(snapshot, sgapack.Options{ArchiveName: "out.sga"}, path); err != nil {
		t.Fatalf("PackToFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	archive, err := sga.Open(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("sga.Open: %v", err)
	}
	if archive.ArchiveName() != "out.sga" {
		t.Fatalf("ArchiveName = %q, want %q", archive.ArchiveName(), "out.sga")
	}
	tocOK, err := archive.VerifyTOC()
	if err != nil || !tocOK {
		t.Fatalf("VerifyTOC() = %v, %v; want true, nil", tocOK, err)
	}
}

func TestRoundTripNestedFolders(t *testing.T) {
	_, fs := buildAndOpen(t, func(fs *sgafs.FS) {
		if err := fs.MakeDirs("data:/a/b/c", false); err != nil {
			t.Fatalf("MakeDirs: %v", err)
		}
		h, err := fs.OpenBin("data:/a/b/c/leaf.txt", sgafs.ModeWrite)
		if err != nil {
			t.Fatalf("OpenBin: %v", err)
		}
		if _, err := h.Write([]byte("leaf")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	names, err := fs.ListDir("data:/a/b/c")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 1 || names[0] != "leaf.txt" {
		t.Fatalf("ListDir = %v, want [leaf.txt]", names)
	}

	rh, err := fs.OpenBin("data:/a/b/c/leaf.txt", sgafs.ModeRead)
	if err != nil {
		t.Fatalf("OpenBin: %v", err)
	}
	got, err := io.ReadAll(rh)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "leaf" {
		t.Fatalf("payload = %q, want %q", got, "leaf")
	}
}

package sga

import (
	"errors"
	"testing"
)

func TestDialectFromRecordSize(t *testing.T) {
	cases := []struct {
		size    int64
		want    Dialect
		wantErr bool
	}{
		{20, DialectDawnOfWar, false},
		{17, DialectImpossibleCreatures, false},
		{18, DialectUnknown, true},
	}
	for _, c := range cases {
		got, err := DialectFromRecordSize(c.size)
		if c.wantErr {
			if !errors.Is(err, ErrUnknownDialect) {
				t.Errorf("size %d: expected ErrUnknownDialect, got %v", c.size, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("size %d: unexpected error %v", c.size, err)
		}
		if got != c.want {
			t.Errorf("size %d: got %v, want %v", c.size, got, c.want)
		}
	}
}

func TestFileRecordStorageTypeRoundTrip(t *testing.T) {
	f := FileRecord{Flags: 0x0A}
	for _, st := range []StorageType{StorageStore, StorageDeflateBuffer, StorageDeflateStream} {
		withType := f.WithStorageType(st)
		if withType.StorageType() != st {
			t.Errorf("storage type %v round trip: got %v", st, withType.StorageType())
		}
		if withType.Flags&0x0F != 0x0A {
			t.Errorf("low nibble not preserved: got %#x", withType.Flags&0x0F)
		}
	}
}

func TestFileRecordDawnOfWarRoundTrip(t *testing.T) {
	m := newMemRW(20)
	w := newReadWriteWindow(m, m, 0, 20)

	in := FileRecord{NameOffset: 12, DataOffset: 100, CompressedSize: 50, DecompressedSize: 200}.WithStorageType(StorageDeflateBuffer)
	if err := writeFileRecord(w, DialectDawnOfWar, in); err != nil {
		t.Fatalf("writeFileRecord: %v", err)
	}
	got, err := readFileRecord(w, DialectDawnOfWar)
	if err != nil {
		t.Fatalf("readFileRecord: %v", err)
	}
	if got != in {
		t.Fatalf("got %+v, want %+v", got, in)
	}
}

func TestFileRecordImpossibleCreaturesRoundTrip(t *testing.T) {
	m := newMemRW(17)
	w := newReadWriteWindow(m, m, 0, 17)

	in := FileRecord{NameOffset: 5, DataOffset: 40, CompressedSize: 10, DecompressedSize: 10}.WithStorageType(StorageStore)
	if err := writeFileRecord(w, DialectImpossibleCreatures, in); err != nil {
		t.Fatalf("writeFileRecord: %v", err)
	}
	got, err := readFileRecord(w, DialectImpossibleCreatures)
	if err != nil {
		t.Fatalf("readFileRecord: %v", err)
	}
	if got != in {
		t.Fatalf("got %+v, want %+v", got, in)
	}
}

func TestFileRecordImpossibleCreaturesRejectsWideFlags(t *testing.T) {
	m := newMemRW(17)
	w := newReadWriteWindow(m, m, 0, 17)
	in := FileRecord{Flags: 0x100}
	if err := writeFileRecord(w, DialectImpossibleCreatures, in); err == nil {
		t.Fatal("expected an error writing flags that don't fit one byte")
	}
}

package blockdev_test

import (
	"bytes"
	"testing"

	"github.com/mccabejp/go-raid5/blockdev"
)

const (
	devices = 3
	sectors = 2048
)

func TestCreateThenOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()

	fbd, err := blockdev.Create(dir, devices, sectors)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	if err := fbd.Close(); err != nil {
		t.Fatalf("close: %s", err)
	}

	reopened, err := blockdev.Open(dir, devices, sectors)
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	defer reopened.Close()

	if reopened.Devices() != devices || reopened.Sectors() != sectors {
		t.Fatalf("reopened shape (%d, %d) != (%d, %d)", reopened.Devices(), reopened.Sectors(), devices, sectors)
	}
}

func TestOpenRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()

	fbd, err := blockdev.Create(dir, devices, sectors)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	fbd.Close()

	if _, err := blockdev.Open(dir, devices, sectors+1); err == nil {
		t.Fatalf("expected Open to reject a mismatched sector count")
	}
}

func TestReadWriteSector(t *testing.T) {
	dir := t.TempDir()

	fbd, err := blockdev.Create(dir, devices, sectors)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	defer fbd.Close()

	want := bytes.Repeat([]byte{0x42}, 512)

	n, err := fbd.WriteSector(1, 5, want, 1)
	if err != nil || n != 1 {
		t.Fatalf("WriteSector: n=%d err=%s", n, err)
	}

	got := make([]byte, 512)
	n, err = fbd.ReadSector(1, 5, got, 1)
	if err != nil || n != 1 {
		t.Fatalf("ReadSector: n=%d err=%s", n, err)
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("read back %v, want %v", got, want)
	}
}

func TestReadWriteRejectOutOfRange(t *testing.T) {
	dir := t.TempDir()

	fbd, err := blockdev.Create(dir, devices, sectors)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	defer fbd.Close()

	buf := make([]byte, 512)

	if _, err := fbd.ReadSector(devices, 0, buf, 1); err == nil {
		t.Fatalf("expected out-of-range device to be rejected")
	}

	if _, err := fbd.WriteSector(0, sectors, buf, 1); err == nil {
		t.Fatalf("expected out-of-range sector to be rejected")
	}
}

func TestFailDeviceAndRestore(t *testing.T) {
	dir := t.TempDir()

	fbd, err := blockdev.Create(dir, devices, sectors)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	defer fbd.Close()

	want := bytes.Repeat([]byte{0x7}, 512)
	if _, err := fbd.WriteSector(0, 0, want, 1); err != nil {
		t.Fatalf("WriteSector: %s", err)
	}

	fbd.FailDevice(0, true, true)

	buf := make([]byte, 512)
	n, err := fbd.ReadSector(0, 0, buf, 1)
	if err != nil {
		t.Fatalf("ReadSector while failed returned an error instead of a short transfer: %s", err)
	}
	if n != 0 {
		t.Fatalf("ReadSector while failed transferred %d sectors, want 0", n)
	}

	fbd.RestoreDevice(0)

	n, err = fbd.ReadSector(0, 0, buf, 1)
	if err != nil || n != 1 {
		t.Fatalf("ReadSector after restore: n=%d err=%s", n, err)
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("restored device lost its original bytes: got %v, want %v", buf, want)
	}
}

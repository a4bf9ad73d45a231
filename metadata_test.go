package raid5

import "testing"

func TestMetadataEncodeDecodeRoundTrip(t *testing.T) {
	m := newMetadata(4)
	m.Failed[1] = true
	m.Status = Degraded

	sector, err := m.encode()
	if err != nil {
		t.Fatalf("encode: %s", err)
	}

	if len(sector) != SectorSize {
		t.Fatalf("encoded sector is %d bytes, want %d", len(sector), SectorSize)
	}

	decoded, err := decodeMetadata(sector, 4)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}

	if !decoded.equal(m) {
		t.Fatalf("decoded %+v != original %+v", decoded, m)
	}
}

func TestMetadataReservedBytesAreZero(t *testing.T) {
	m := newMetadata(4)
	m.Failed[0] = true
	m.Status = OK

	sector, err := m.encode()
	if err != nil {
		t.Fatalf("encode: %s", err)
	}

	for i := onDiskMetadataSize; i < SectorSize; i++ {
		if sector[i] != 0 {
			t.Fatalf("byte %d of the encoded sector is %d, want 0", i, sector[i])
		}
	}
}

func TestReconcileMetadataMajorityVote(t *testing.T) {
	healthy := newMetadata(4)
	healthy.Status = OK

	corrupt := newMetadata(4)
	corrupt.Status = Failed
	corrupt.Failed[3] = true

	decoded := []Metadata{healthy, healthy, corrupt, healthy}
	unreadable := []bool{false, false, false, false}

	adopted, failed := reconcileMetadata(decoded, unreadable)

	if !adopted.equal(healthy) {
		t.Fatalf("adopted %+v, want the agreeing record", adopted)
	}

	for i, f := range failed {
		want := i == 2
		if f != want {
			t.Fatalf("failed[%d] = %v, want %v", i, f, want)
		}
	}
}

func TestReconcileMetadataUnreadableDeviceIsFlagged(t *testing.T) {
	healthy := newMetadata(3)
	healthy.Status = OK

	decoded := []Metadata{healthy, healthy, healthy}
	unreadable := []bool{false, false, true}

	_, failed := reconcileMetadata(decoded, unreadable)

	if !failed[2] {
		t.Fatalf("device 2 should be flagged failed because its metadata was unreadable")
	}
	if failed[0] || failed[1] {
		t.Fatalf("devices 0 and 1 should not be flagged: %v", failed)
	}
}

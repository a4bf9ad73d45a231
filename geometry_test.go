package raid5

import "testing"

func TestSectorLocationRoundTrip(t *testing.T) {
	shapes := [][2]int{{3, 8}, {4, 8192}, {5, 2048}, {16, 4096}}

	for _, shape := range shapes {
		devices, sectors := shape[0], shape[1]
		size := capacity(devices, sectors)

		seen := make(map[[2]int]int)

		for l := 0; l < size; l++ {
			d, r := sectorLocation(devices, l)

			if d == parityDeviceForRow(devices, r) {
				t.Fatalf("devices=%d sectors=%d: logical %d mapped onto its row's parity device", devices, sectors, l)
			}

			key := [2]int{d, r}
			if prev, exists := seen[key]; exists {
				t.Fatalf("devices=%d sectors=%d: (device %d, row %d) hit by both %d and %d", devices, sectors, d, r, prev, l)
			}
			seen[key] = l

			back := logicalSector(devices, d, r)
			if back != l {
				t.Fatalf("devices=%d sectors=%d: logicalSector(%d,%d) = %d, want %d", devices, sectors, d, r, back, l)
			}
		}

		if len(seen) != size {
			t.Fatalf("devices=%d sectors=%d: expected %d distinct (device,row) pairs, got %d", devices, sectors, size, len(seen))
		}
	}
}

func TestParityRotatesAcrossRows(t *testing.T) {
	devices := 4

	for r := 0; r < devices*3; r++ {
		p := parityDeviceForRow(devices, r)
		if p != r%devices {
			t.Fatalf("row %d: parity device %d, want %d", r, p, r%devices)
		}
	}
}

func TestCapacity(t *testing.T) {
	if got := capacity(4, 8192); got != 3*8191 {
		t.Fatalf("capacity(4, 8192) = %d, want %d", got, 3*8191)
	}
}

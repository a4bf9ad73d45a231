package raid5

import (
	"encoding/binary"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// defaultEncoding is the byte order used for every on-disk integer field in
// this package.
var defaultEncoding = binary.LittleEndian

// onDiskMetadata is the packed representation of Metadata: MaxDevices
// failure-flag bytes followed by a 4-byte RaidStatus. It is deliberately a
// separate, unexported type from Metadata so that Metadata.Failed can be a
// sized slice keyed by the session's actual device count rather than always
// MaxDevices.
type onDiskMetadata struct {
	Failed [MaxDevices]byte
	Status int32
}

const onDiskMetadataSize = MaxDevices + 4

// Metadata is the in-memory form of a device's metadata sector: which
// devices are flagged failed (indexed 0..devices-1) and the RaidStatus at
// the time it was written.
type Metadata struct {
	Failed []bool
	Status RaidStatus
}

// newMetadata returns a healthy, all-clear metadata record for a device
// array of the given size.
func newMetadata(devices int) Metadata {
	return Metadata{
		Failed: make([]bool, devices),
		Status: Stopped,
	}
}

// equal reports whether two records describe the same failure set and
// status, matching Metadata::operator== in original_source/main.cpp.
func (m Metadata) equal(other Metadata) bool {
	if m.Status != other.Status {
		return false
	}

	for i := 0; i < MaxDevices; i++ {
		if m.failedAt(i) != other.failedAt(i) {
			return false
		}
	}

	return true
}

// failedAt reports the failed flag at index i, treating indices beyond the
// slice's length as false.
func (m Metadata) failedAt(i int) bool {
	if i < 0 || i >= len(m.Failed) {
		return false
	}

	return m.Failed[i]
}

// encode packs m into a full SectorSize-byte sector, zero-padded past the
// onDiskMetadataSize header.
func (m Metadata) encode() (sector []byte, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("metadata encode panic: %v", errRaw)
			}
		}
	}()

	odm := onDiskMetadata{Status: int32(m.Status)}
	for i := 0; i < len(m.Failed) && i < MaxDevices; i++ {
		if m.Failed[i] {
			odm.Failed[i] = 1
		}
	}

	packed, err := restruct.Pack(defaultEncoding, &odm)
	log.PanicIf(err)

	sector = make([]byte, SectorSize)
	copy(sector, packed)

	return sector, nil
}

// decodeMetadata unpacks a sector previously produced by encode, yielding a
// record sized for the given device count.
func decodeMetadata(sector []byte, devices int) (m Metadata, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("metadata decode panic: %v", errRaw)
			}
		}
	}()

	if len(sector) < onDiskMetadataSize {
		log.Panicf("metadata sector too small: %d bytes", len(sector))
	}

	var odm onDiskMetadata

	err = restruct.Unpack(sector[:onDiskMetadataSize], defaultEncoding, &odm)
	log.PanicIf(err)

	m = Metadata{
		Failed: make([]bool, devices),
		Status: RaidStatus(odm.Status),
	}

	for i := 0; i < devices && i < MaxDevices; i++ {
		m.Failed[i] = odm.Failed[i] == 1
	}

	return m, nil
}

// reconcileMetadata implements the "Recovery on Start" quorum: given one
// decoded (or zero-value, for unreadable devices) record per device and the
// set of devices whose metadata sector could not be read at all, it returns
// the adopted record and, independently, which devices disagree with it
// (including the unreadable ones).
//
// D >= 3 is enforced by Start before this is called; the quorum-less
// two/one-device cases are intentionally not supported here.
func reconcileMetadata(decoded []Metadata, unreadable []bool) (adopted Metadata, failed []bool) {
	devices := len(decoded)

	if decoded[0].equal(decoded[1]) {
		adopted = decoded[0]
	} else {
		adopted = decoded[2]
	}

	failed = make([]bool, devices)

	for i := 0; i < devices; i++ {
		if unreadable[i] || !decoded[i].equal(adopted) {
			failed[i] = true
		}
	}

	return adopted, failed
}

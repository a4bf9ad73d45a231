// Package raid5 implements a software RAID-5 volume engine layered atop a
// fixed array of block devices. Callers address the volume purely in terms
// of logical sector numbers; the engine hides striping, rotating parity,
// degraded-mode reconstruction, and the persistent per-device metadata that
// lets a volume be stopped and later restarted across a crash while
// remembering which device, if any, failed.
package raid5

import (
	"fmt"

	"github.com/dsoprea/go-logging"
)

// RaidStatus is the volume's operating state. The on-disk encoding is
// 0=Stopped, 1=OK, 2=Degraded, 3=Failed.
type RaidStatus int

const (
	Stopped RaidStatus = iota
	OK
	Degraded
	Failed
)

func (s RaidStatus) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case OK:
		return "OK"
	case Degraded:
		return "DEGRADED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("RaidStatus(%d)", int(s))
	}
}

// Volume is a single RAID-5 device array session. The zero value is ready
// to use: call Create once (out-of-band, typically from a provisioning
// tool) and then Start to begin a session.
//
// A Volume is not safe for concurrent use by multiple goroutines; callers
// needing concurrent access must serialize externally.
type Volume struct {
	dev Provider

	devices int
	sectors int

	status RaidStatus
	failed []bool
}

// Create writes an initial, all-clear metadata record to every device's
// last sector. It returns false if any device's write does not report
// exactly one sector written.
func Create(dev Provider) (ok bool, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var wrapErr error
			if asErr, is := errRaw.(error); is == true {
				wrapErr = log.Wrap(asErr)
			} else {
				wrapErr = log.Errorf("create panic: %v", errRaw)
			}
			err = wrapErr
		}
	}()

	if validationErr := validateShape(dev); validationErr != nil {
		return false, validationErr
	}

	meta := newMetadata(dev.Devices())

	sector, encErr := meta.encode()
	log.PanicIf(encErr)

	for d := 0; d < dev.Devices(); d++ {
		n, writeErr := dev.WriteSector(d, dev.Sectors()-1, sector, 1)
		if writeErr != nil || n != 1 {
			return false, nil
		}
	}

	return true, nil
}

func validateShape(dev Provider) error {
	if dev == nil {
		return fmt.Errorf("raid5: nil device array")
	}
	if dev.Devices() < MinDevices {
		return ErrTooFewDevices
	}
	if dev.Devices() > MaxDevices {
		return ErrTooManyDevices
	}
	if dev.Sectors() < MinSectorsPerDevice || dev.Sectors() > MaxSectorsPerDevice {
		return ErrBadSectorCount
	}
	return nil
}

// Start brings the volume up from its persisted metadata. If the volume is
// not currently Stopped, Start is idempotent and returns the current status
// unchanged.
func (v *Volume) Start(dev Provider) (status RaidStatus, err error) {
	if v.status != Stopped {
		return v.status, nil
	}

	defer func() {
		if errRaw := recover(); errRaw != nil {
			var wrapErr error
			if asErr, is := errRaw.(error); is == true {
				wrapErr = log.Wrap(asErr)
			} else {
				wrapErr = log.Errorf("start panic: %v", errRaw)
			}
			err = wrapErr
			status = v.status
		}
	}()

	if validationErr := validateShape(dev); validationErr != nil {
		return v.status, validationErr
	}

	v.dev = dev
	v.devices = dev.Devices()
	v.sectors = dev.Sectors()

	decoded := make([]Metadata, v.devices)
	unreadable := make([]bool, v.devices)

	buf := make([]byte, SectorSize)

	for d := 0; d < v.devices; d++ {
		n, readErr := dev.ReadSector(d, v.sectors-1, buf, 1)
		if readErr != nil || n != 1 {
			unreadable[d] = true
			decoded[d] = newMetadata(v.devices)
			continue
		}

		m, decErr := decodeMetadata(buf, v.devices)
		log.PanicIf(decErr)

		decoded[d] = m
	}

	adopted, failed := reconcileMetadata(decoded, unreadable)
	for i := range failed {
		if adopted.failedAt(i) {
			failed[i] = true
		}
	}
	v.failed = failed

	v.status = statusFromFailedCount(countFailed(v.failed))

	return v.status, nil
}

func statusFromFailedCount(n int) RaidStatus {
	switch {
	case n == 0:
		return OK
	case n == 1:
		return Degraded
	default:
		return Failed
	}
}

func countFailed(failed []bool) int {
	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return n
}

// Stop persists the current metadata to every device's last sector
// (best-effort — a device-level write failure is logged but does not
// change the outcome), transitions the volume to Stopped, and returns
// Stopped.
func (v *Volume) Stop() RaidStatus {
	if v.dev != nil {
		meta := Metadata{Failed: v.failed, Status: v.status}

		sector, err := meta.encode()
		if err != nil {
			log.Warningf(nil, "raid5: failed to encode metadata on stop: %s", err)
		} else {
			for d := 0; d < v.devices; d++ {
				n, writeErr := v.dev.WriteSector(d, v.sectors-1, sector, 1)
				if writeErr != nil || n != 1 {
					log.Warningf(nil, "raid5: device %d refused metadata write on stop", d)
				}
			}
		}
	}

	v.status = Stopped

	return v.status
}

// Status is a pure accessor for the volume's current state.
func (v *Volume) Status() RaidStatus {
	return v.status
}

// Size returns the logical volume capacity in sectors: (devices-1) *
// (sectors-1). It is 0 before the first successful Start.
func (v *Volume) Size() int {
	if v.dev == nil {
		return 0
	}
	return capacity(v.devices, v.sectors)
}

// FailedDevice returns the index of the currently failed device, if any.
// It is a convenience accessor layered on top of the aggregate status that
// Read/Write expose.
func (v *Volume) FailedDevice() (index int, found bool) {
	for i, f := range v.failed {
		if f {
			return i, true
		}
	}
	return 0, false
}

// Read reads sectorCount contiguous logical sectors starting at logical
// into buf, which must be at least sectorCount*SectorSize bytes.
func (v *Volume) Read(logical int, buf []byte, sectorCount int) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			if asErr, is := errRaw.(error); is == true {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("read panic: %v", errRaw)
			}
		}
	}()

	if v.status == Stopped {
		return ErrStopped
	}
	if v.status == Failed {
		return ErrFailed
	}

	if logical < 0 || sectorCount < 1 || logical+sectorCount > v.Size() {
		return ErrOutOfRange
	}

	sector := make([]byte, SectorSize)

	for i := 0; i < sectorCount; i++ {
		d, r := sectorLocation(v.devices, logical+i)

		if err := v.checkedRead(d, r, sector); err != nil {
			return err
		}

		copy(buf[i*SectorSize:(i+1)*SectorSize], sector)
	}

	return nil
}

// Write writes sectorCount contiguous logical sectors starting at logical
// from buf, which must be at least sectorCount*SectorSize bytes.
func (v *Volume) Write(logical int, buf []byte, sectorCount int) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			if asErr, is := errRaw.(error); is == true {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("write panic: %v", errRaw)
			}
		}
	}()

	if v.status == Stopped {
		return ErrStopped
	}
	if v.status == Failed {
		return ErrFailed
	}

	if logical < 0 || sectorCount < 1 || logical+sectorCount > v.Size() {
		return ErrOutOfRange
	}

	for i := 0; i < sectorCount; i++ {
		d, r := sectorLocation(v.devices, logical+i)

		source := buf[i*SectorSize : (i+1)*SectorSize]

		if err := v.checkedWrite(d, r, source); err != nil {
			return err
		}
	}

	return nil
}

// checkedRead implements "Checked device read".
func (v *Volume) checkedRead(device, row int, dest []byte) error {
	if v.failed[device] {
		return v.reconstruct(device, row, dest)
	}

	n, err := v.dev.ReadSector(device, row, dest, 1)
	if err == nil && n == 1 {
		return nil
	}

	return v.promoteAndRetryRead(device, row, dest)
}

// promoteAndRetryRead handles a fresh provider-read failure on a device
// that was not previously flagged: it applies the OK->Degraded vs
// Degraded->Failed promotion rule and, if the volume is still usable,
// retries via reconstruction.
func (v *Volume) promoteAndRetryRead(device, row int, dest []byte) error {
	wasOK := v.status == OK

	v.flagFailed(device)

	if wasOK {
		v.status = Degraded
		log.Warningf(nil, "raid5: device %d failed on read, degrading", device)
		return v.reconstruct(device, row, dest)
	}

	v.status = Failed
	log.Warningf(nil, "raid5: device %d failed on read while degraded, volume failed", device)
	return ErrFailed
}

// reconstruct XORs device-sector row across every device other than
// skipDevice to recover the content that belongs at (skipDevice, row).
func (v *Volume) reconstruct(skipDevice, row int, dest []byte) error {
	for i := range dest {
		dest[i] = 0
	}

	buf := make([]byte, SectorSize)

	for d := 0; d < v.devices; d++ {
		if d == skipDevice {
			continue
		}

		n, err := v.dev.ReadSector(d, row, buf, 1)
		if err != nil || n != 1 {
			v.flagFailed(d)
			v.status = Failed
			log.Warningf(nil, "raid5: device %d failed during reconstruction, volume failed", d)
			return ErrFailed
		}

		xorInto(dest, buf)
	}

	return nil
}

// checkedWrite implements "Checked device write".
func (v *Volume) checkedWrite(device, row int, source []byte) error {
	parity := parityDeviceForRow(v.devices, row)

	if device == parity {
		log.Panicf("raid5: geometry assigned data sector to its own row's parity device (row %d)", row)
	}

	oldData := make([]byte, SectorSize)
	if err := v.checkedRead(device, row, oldData); err != nil {
		return err
	}

	oldParity := make([]byte, SectorSize)
	if err := v.checkedRead(parity, row, oldParity); err != nil {
		return err
	}

	if !v.failed[device] {
		if err := v.checkedProviderWrite(device, row, source); err != nil {
			return err
		}
	}

	if !v.failed[parity] {
		newParity := make([]byte, SectorSize)
		copy(newParity, oldParity)
		xorInto(newParity, oldData)
		xorInto(newParity, source)

		if err := v.checkedProviderWrite(parity, row, newParity); err != nil {
			return err
		}
	}

	return nil
}

// checkedProviderWrite issues a single-sector provider write and applies
// the OK->Degraded / Degraded->Failed promotion rule on failure.
func (v *Volume) checkedProviderWrite(device, row int, source []byte) error {
	n, err := v.dev.WriteSector(device, row, source, 1)
	if err == nil && n == 1 {
		return nil
	}

	wasOK := v.status == OK

	v.flagFailed(device)

	if wasOK {
		v.status = Degraded
		log.Warningf(nil, "raid5: device %d failed on write, degrading", device)
		return nil
	}

	v.status = Failed
	log.Warningf(nil, "raid5: device %d failed on write while degraded, volume failed", device)
	return ErrFailed
}

func (v *Volume) flagFailed(device int) {
	if device >= 0 && device < len(v.failed) {
		v.failed[device] = true
	}
}

// xorInto XORs src into dst in place; both must be the same length.
func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

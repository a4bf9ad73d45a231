// Package blockdev provides a file-backed implementation of the raid5
// package's Provider contract, for use by tests and cmd/raid5ctl in place
// of real disks. It is grounded on the sample disk backend in
// original_source/tests.cpp (diskRead/diskWrite/createDisks/openDisks),
// promoted from a throwaway test harness into a reusable package.
package blockdev

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dsoprea/go-logging"
)

const sectorSize = 512

// FileBlockDevice implements raid5.Provider over a fixed set of
// fixed-size files, one per simulated device.
type FileBlockDevice struct {
	devices int
	sectors int

	mu    []sync.Mutex
	files []*os.File

	// failedReads/failedWrites let tests and cmd/raid5ctl simulate a disk
	// that silently transfers zero sectors, without touching the
	// backing file, so that RestoreDevice + Volume.Resync round-trips
	// the original bytes.
	failedReads  []bool
	failedWrites []bool
}

func deviceFilename(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("device-%03d.img", index))
}

// Create creates devices fixed-size, zero-filled files under dir, each
// sectors*SectorSize bytes, and returns a FileBlockDevice over them.
func Create(dir string, devices, sectors int) (fbd *FileBlockDevice, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			if asErr, is := errRaw.(error); is == true {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("blockdev create panic: %v", errRaw)
			}
		}
	}()

	files := make([]*os.File, devices)

	zero := make([]byte, sectorSize)

	for i := 0; i < devices; i++ {
		f, openErr := os.Create(deviceFilename(dir, i))
		log.PanicIf(openErr)

		for s := 0; s < sectors; s++ {
			_, writeErr := f.Write(zero)
			log.PanicIf(writeErr)
		}

		files[i] = f
	}

	return newFileBlockDevice(devices, sectors, files), nil
}

// Open opens devices pre-existing files under dir, verifying each is
// exactly sectors*SectorSize bytes.
func Open(dir string, devices, sectors int) (fbd *FileBlockDevice, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			if asErr, is := errRaw.(error); is == true {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("blockdev open panic: %v", errRaw)
			}
		}
	}()

	files := make([]*os.File, devices)
	expectedSize := int64(sectors) * sectorSize

	for i := 0; i < devices; i++ {
		f, openErr := os.OpenFile(deviceFilename(dir, i), os.O_RDWR, 0)
		log.PanicIf(openErr)

		info, statErr := f.Stat()
		log.PanicIf(statErr)

		if info.Size() != expectedSize {
			log.Panicf("blockdev: device %d has size %d, expected %d", i, info.Size(), expectedSize)
		}

		files[i] = f
	}

	return newFileBlockDevice(devices, sectors, files), nil
}

func newFileBlockDevice(devices, sectors int, files []*os.File) *FileBlockDevice {
	return &FileBlockDevice{
		devices:      devices,
		sectors:      sectors,
		mu:           make([]sync.Mutex, devices),
		files:        files,
		failedReads:  make([]bool, devices),
		failedWrites: make([]bool, devices),
	}
}

// Devices returns the fixed device count.
func (fbd *FileBlockDevice) Devices() int { return fbd.devices }

// Sectors returns the fixed per-device sector count.
func (fbd *FileBlockDevice) Sectors() int { return fbd.sectors }

func (fbd *FileBlockDevice) validate(device, startSector, sectorCount int) error {
	if device < 0 || device >= fbd.devices {
		return fmt.Errorf("blockdev: device %d out of range", device)
	}
	if sectorCount < 1 {
		return fmt.Errorf("blockdev: sectorCount must be >= 1")
	}
	if startSector < 0 || startSector+sectorCount > fbd.sectors {
		return fmt.Errorf("blockdev: sector range [%d,%d) out of range", startSector, startSector+sectorCount)
	}
	return nil
}

// ReadSector reads sectorCount sectors starting at startSector from device
// into buf.
func (fbd *FileBlockDevice) ReadSector(device, startSector int, buf []byte, sectorCount int) (int, error) {
	if err := fbd.validate(device, startSector, sectorCount); err != nil {
		return 0, err
	}

	fbd.mu[device].Lock()
	defer fbd.mu[device].Unlock()

	if fbd.failedReads[device] {
		return 0, nil
	}

	n, err := fbd.files[device].ReadAt(buf[:sectorCount*sectorSize], int64(startSector)*sectorSize)
	if err != nil {
		return n / sectorSize, err
	}

	return n / sectorSize, nil
}

// WriteSector writes sectorCount sectors starting at startSector on device
// from buf.
func (fbd *FileBlockDevice) WriteSector(device, startSector int, buf []byte, sectorCount int) (int, error) {
	if err := fbd.validate(device, startSector, sectorCount); err != nil {
		return 0, err
	}

	fbd.mu[device].Lock()
	defer fbd.mu[device].Unlock()

	if fbd.failedWrites[device] {
		return 0, nil
	}

	n, err := fbd.files[device].WriteAt(buf[:sectorCount*sectorSize], int64(startSector)*sectorSize)
	if err != nil {
		return n / sectorSize, err
	}

	return n / sectorSize, nil
}

// FailDevice makes device report zero sectors transferred for reads and/or
// writes, without touching the backing file, simulating a disk that has
// gone silently unresponsive.
func (fbd *FileBlockDevice) FailDevice(index int, readsFail, writesFail bool) {
	fbd.failedReads[index] = readsFail
	fbd.failedWrites[index] = writesFail
}

// RestoreDevice clears any FailDevice simulation on device index. The
// backing file's contents are untouched, so a subsequent Volume.Resync
// writes fresh data into it.
func (fbd *FileBlockDevice) RestoreDevice(index int) {
	fbd.failedReads[index] = false
	fbd.failedWrites[index] = false
}

// Close closes every open backing file.
func (fbd *FileBlockDevice) Close() error {
	var firstErr error
	for _, f := range fbd.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

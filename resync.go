package raid5

import (
	"github.com/dsoprea/go-logging"
)

// resyncProgressInterval is how often (in rows) Resync invokes the caller's
// progress callback, so long resyncs still print periodic progress lines.
const resyncProgressInterval = 256

// ResyncProgressFunc is invoked periodically during Resync with the number
// of rows completed so far and the total row count. A nil callback is
// accepted.
type ResyncProgressFunc func(row, totalRows int)

// Resync rebuilds the single failed device's data sectors from its
// surviving peers. It is a no-op outside Degraded: Resync returns the
// current status unchanged without touching any device.
//
// progress, if non-nil, is invoked every resyncProgressInterval rows.
func (v *Volume) Resync(progress ResyncProgressFunc) (status RaidStatus, err error) {
	if v.status != Degraded {
		return v.status, nil
	}

	defer func() {
		if errRaw := recover(); errRaw != nil {
			if asErr, is := errRaw.(error); is == true {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("resync panic: %v", errRaw)
			}
			status = v.status
		}
	}()

	failedDevice, found := v.FailedDevice()
	if !found {
		log.Panicf("raid5: status is Degraded but no device is flagged failed")
	}

	log.Infof(nil, "raid5: resync of device %d starting", failedDevice)

	totalRows := v.sectors - 1
	rebuilt := make([]byte, SectorSize)

	for row := 0; row < totalRows; row++ {
		if v.reconstruct(failedDevice, row, rebuilt) != nil {
			return v.status, nil
		}

		n, writeErr := v.dev.WriteSector(failedDevice, row, rebuilt, 1)
		if writeErr != nil || n != 1 {
			log.Warningf(nil, "raid5: resync write failed at row %d, device %d still degraded", row, failedDevice)
			return v.status, nil
		}

		if progress != nil && (row%resyncProgressInterval == 0 || row == totalRows-1) {
			progress(row+1, totalRows)
		}
	}

	for i := range v.failed {
		v.failed[i] = false
	}
	v.status = OK

	log.Infof(nil, "raid5: resync of device %d completed", failedDevice)

	return v.status, nil
}

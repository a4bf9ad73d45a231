package raid5

import (
	"errors"
)

// ErrStopped is returned when Read/Write is attempted while the
// volume is stopped.
var ErrStopped = errors.New("raid5: volume is stopped")

// ErrFailed is returned when Read/Write is attempted, or continues,
// after the volume has transitioned to Failed.
var ErrFailed = errors.New("raid5: volume has failed")

// ErrTooFewDevices is returned by Create/Start when the device descriptor
// carries fewer than MinDevices devices.
var ErrTooFewDevices = errors.New("raid5: at least MinDevices devices are required")

// ErrTooManyDevices is returned by Create/Start when the device descriptor
// carries more than MaxDevices devices.
var ErrTooManyDevices = errors.New("raid5: at most MaxDevices devices are supported")

// ErrBadSectorCount is returned by Create/Start when the per-device sector
// count is outside [MinSectorsPerDevice, MaxSectorsPerDevice].
var ErrBadSectorCount = errors.New("raid5: sectors per device out of range")

// ErrOutOfRange is returned by Read/Write when the requested logical range
// does not fit within the volume's capacity.
var ErrOutOfRange = errors.New("raid5: logical sector range out of bounds")

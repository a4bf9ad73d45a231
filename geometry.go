package raid5

// Geometry implements the logical-sector-to-device mapping: rotating
// parity, left-symmetric over rows. getRelativeIndexes-style arithmetic is
// hard to invert cleanly, so this scheme picks a plainer row/offset
// decomposition instead, at the cost of not bit-matching a reference
// driver's physical layout.
//
// For a row r, the parity device is p = r mod devices. The remaining
// devices-1 slots in the row hold data, in ascending device-index order
// skipping p. Device-sector sectorsPerDevice-1 is reserved for metadata on
// every device and is never addressed here.

// parityDeviceForRow returns the parity device index for device-sector row r.
func parityDeviceForRow(devices, row int) int {
	return row % devices
}

// sectorLocation maps a logical sector L to its (device, row) coordinates.
func sectorLocation(devices int, logical int) (device, row int) {
	dataPerRow := devices - 1

	row = logical / dataPerRow
	offset := logical % dataPerRow

	parity := parityDeviceForRow(devices, row)

	device = offset
	if device >= parity {
		device++
	}

	return device, row
}

// logicalSector maps (device, row) back to the logical sector it holds. The
// caller must ensure device is not the parity device for row.
func logicalSector(devices, device, row int) (logical int) {
	dataPerRow := devices - 1

	parity := parityDeviceForRow(devices, row)

	offset := device
	if device > parity {
		offset--
	}

	return row*dataPerRow + offset
}

// capacity returns the logical sector count for a device array of the given
// shape: (devices-1) * (sectors-1).
func capacity(devices, sectors int) int {
	return (devices - 1) * (sectors - 1)
}

package main

import (
	"fmt"

	"github.com/dsoprea/go-logging"

	"github.com/mccabejp/go-raid5"
	"github.com/mccabejp/go-raid5/blockdev"
)

// failCommand is a diagnostic/demo tool, not a production repair command:
// it drives the degrade transition observably by marking a device failed
// and then touching every logical sector once.
type failCommand struct {
	deviceShape
	Device int `long:"device" description:"Device index to fail" required:"true"`
}

func (c *failCommand) Execute(args []string) error {
	fbd, err := blockdev.Open(c.Dir, c.Devices, c.Sectors)
	log.PanicIf(err)

	defer fbd.Close()

	var vol raid5.Volume

	status, err := vol.Start(fbd)
	log.PanicIf(err)

	if status != raid5.OK {
		return fmt.Errorf("raid5ctl: volume must be OK before injecting a failure, got %s", status)
	}

	fbd.FailDevice(c.Device, true, true)

	buf := make([]byte, raid5.SectorSize)

	for l := 0; l < vol.Size(); l++ {
		if err := vol.Read(l, buf, 1); err != nil {
			fmt.Printf("read of sector %d failed: %s\n", l, err)
			break
		}
	}

	fmt.Printf("status: %s\n", vol.Status())

	vol.Stop()

	return nil
}

package main

import (
	"fmt"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"

	"github.com/mccabejp/go-raid5"
	"github.com/mccabejp/go-raid5/blockdev"
)

type statusCommand struct {
	deviceShape
}

func (c *statusCommand) Execute(args []string) error {
	fbd, err := blockdev.Open(c.Dir, c.Devices, c.Sectors)
	log.PanicIf(err)

	defer fbd.Close()

	var vol raid5.Volume

	status, err := vol.Start(fbd)
	log.PanicIf(err)

	capacityBytes := uint64(vol.Size()) * raid5.SectorSize

	fmt.Printf("status:   %s\n", status)
	fmt.Printf("capacity: %s sectors (%s)\n",
		humanize.Comma(int64(vol.Size())),
		humanize.Bytes(capacityBytes))

	if index, found := vol.FailedDevice(); found {
		fmt.Printf("failed device: %d\n", index)
	}

	vol.Stop()

	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/dsoprea/go-logging"

	"github.com/mccabejp/go-raid5"
	"github.com/mccabejp/go-raid5/blockdev"
)

type resyncCommand struct {
	deviceShape
}

func (c *resyncCommand) Execute(args []string) error {
	fbd, err := blockdev.Open(c.Dir, c.Devices, c.Sectors)
	log.PanicIf(err)

	defer fbd.Close()

	var vol raid5.Volume

	status, err := vol.Start(fbd)
	log.PanicIf(err)

	if status != raid5.Degraded {
		fmt.Printf("status: %s (resync is a no-op outside DEGRADED)\n", status)
		vol.Stop()
		return nil
	}

	progress := func(row, totalRows int) {
		fmt.Printf("\rresyncing: %d/%d rows", row, totalRows)
	}

	start := time.Now()

	result, err := vol.Resync(progress)
	log.PanicIf(err)

	fmt.Printf("\nstatus: %s (%s elapsed)\n", result, time.Since(start).Round(time.Millisecond))

	vol.Stop()

	return nil
}

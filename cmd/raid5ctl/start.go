package main

import (
	"fmt"

	"github.com/dsoprea/go-logging"

	"github.com/mccabejp/go-raid5"
	"github.com/mccabejp/go-raid5/blockdev"
)

type startCommand struct {
	deviceShape
}

func (c *startCommand) Execute(args []string) error {
	fbd, err := blockdev.Open(c.Dir, c.Devices, c.Sectors)
	log.PanicIf(err)

	defer fbd.Close()

	var vol raid5.Volume

	status, err := vol.Start(fbd)
	log.PanicIf(err)

	fmt.Printf("status: %s\n", status)

	if index, found := vol.FailedDevice(); found {
		fmt.Printf("failed device: %d\n", index)
	}

	vol.Stop()

	return nil
}

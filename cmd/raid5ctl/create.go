package main

import (
	"fmt"

	"github.com/dsoprea/go-logging"

	"github.com/mccabejp/go-raid5"
	"github.com/mccabejp/go-raid5/blockdev"
)

type createCommand struct {
	deviceShape
}

func (c *createCommand) Execute(args []string) error {
	fbd, err := blockdev.Create(c.Dir, c.Devices, c.Sectors)
	log.PanicIf(err)

	defer fbd.Close()

	ok, err := raid5.Create(fbd)
	log.PanicIf(err)

	if !ok {
		return fmt.Errorf("raid5ctl: create failed: a device refused the initial metadata write")
	}

	fmt.Printf("created %d-device volume at %s\n", c.Devices, c.Dir)

	return nil
}

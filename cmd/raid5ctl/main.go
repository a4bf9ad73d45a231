// Command raid5ctl creates, starts, inspects, and exercises a file-backed
// RAID-5 volume from the command line.
package main

import (
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"
)

type options struct {
	Create createCommand `command:"create" description:"Create a new volume's backing files and initial metadata"`
	Start  startCommand  `command:"start" description:"Start a volume and report its status"`
	Status statusCommand `command:"status" description:"Start a volume, print status and capacity, then stop"`
	Fail   failCommand   `command:"fail" description:"Simulate a device failure against a running volume"`
	Resync resyncCommand `command:"resync" description:"Resync a degraded volume"`
}

var opts options

func main() {
	defer func() {
		if state := recover(); state != nil {
			var err error
			if asErr, is := state.(error); is == true {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("raid5ctl panic: %v", state)
			}
			log.PrintError(err)
			os.Exit(1)
		}
	}()

	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, is := err.(*flags.Error); is == true && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// deviceShape is embedded by every subcommand that needs to locate and open
// an existing or new device array.
type deviceShape struct {
	Dir     string `short:"d" long:"dir" description:"Directory holding the device files" required:"true"`
	Devices int    `short:"n" long:"devices" description:"Number of devices" required:"true"`
	Sectors int    `short:"s" long:"sectors" description:"Sectors per device" required:"true"`
}

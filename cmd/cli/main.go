package main

import (
	"context"
	"flag"
	"time"

	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	"monosweep"
)

// Manual sweep runner for bench testing without a running module.
func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	port := flag.String("port", "/dev/ttyUSB0", "serial port of the monochromator")
	baudrate := flag.Int("baudrate", monosweep.DefaultBaudrate, "serial baudrate")
	startNm := flag.Int("start", 300, "sweep start wavelength in nm")
	stopNm := flag.Int("stop", 550, "sweep stop wavelength in nm")
	stepNm := flag.Int("step", 50, "sweep step in nm")
	settle := flag.Duration("settle", 500*time.Millisecond, "pause between steps")
	flag.Parse()

	ctx := context.Background()
	logger := logging.NewLogger("monosweep-cli")

	driver, err := monosweep.NewDriver(*port, *baudrate, monosweep.DefaultFilterTable, monosweep.DefaultTimeout, logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	sweep := monosweep.NewMonoSweep(driver, *startNm, *stopNm, *stepNm, logger)
	params := sweep.Params()

	logger.Info(params.Start())

	for params.InProgress {
		status, err := sweep.Step()
		if err != nil {
			return err
		}
		logger.Info(status)

		if !goutils.SelectContextOrWait(ctx, *settle) {
			return ctx.Err()
		}
	}

	logger.Info("Sweep complete")
	return nil
}

package main

import (
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"

	"monosweep"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: sensor.API, Model: monosweep.MonoSweepModel},
		resource.APIModel{API: discovery.API, Model: monosweep.MonoDiscoveryModel},
	)
}

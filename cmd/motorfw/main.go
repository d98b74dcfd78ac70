package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/firmware"
)

func init() {
	firmware.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	emu, err := firmware.NewConfig().NewEmulator()
	if err != nil {
		log.Fatalln(err)
	}
	if err := fx.NewRunner().HandleSignals().Go(emu).Wait(); err != nil {
		log.Fatalln(err)
	}
}

package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l1/bridge"
)

func init() {
	bridge.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := bridge.NewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}
	daemon, err := conf.NewDaemon()
	if err != nil {
		log.Fatalln(err)
	}
	if err := fx.NewRunner().HandleSignals().Go(daemon).Wait(); err != nil {
		log.Fatalln(err)
	}
}

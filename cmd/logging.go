package cmd

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/urfave/cli"
)

var logger = log.New("art")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

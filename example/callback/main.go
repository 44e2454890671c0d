package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	bioreactor "github.com/Anindya-Karmaker/openua-bioreactor"
)

func main() {
	cfg, err := bioreactor.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sub := bioreactor.NewCallbackSubscriber(bioreactor.Callbacks{
		OnReading: func(r bioreactor.Reading) {
			fmt.Printf("%s values=%v\n", r.Time().Format(time.RFC3339Nano), r.Values)
		},
		OnStatus: func(status string) {
			fmt.Printf("status: %s\n", status)
		},
		OnReactorStarted: func(ts float64) {
			fmt.Printf("reactor started at %.3f\n", ts)
		},
	})

	rt, err := bioreactor.NewRuntime(cfg, bioreactor.WithSubscriber(sub))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime exited: %v", err)
	}
}

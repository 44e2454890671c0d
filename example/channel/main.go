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

	sub := bioreactor.NewChannelSubscriber(64, nil)
	defer sub.Close()

	go readingWorker("ui", sub.Readings())
	go eventWorker("ui", sub.Events())

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

func readingWorker(name string, readings <-chan bioreactor.Reading) {
	for r := range readings {
		fmt.Printf("[%s] %s values=%v\n", name, r.Time().Format(time.RFC3339), r.Values)
	}
}

func eventWorker(name string, events <-chan bioreactor.Event) {
	for e := range events {
		if e.Started {
			fmt.Printf("[%s] reactor started at %.3f\n", name, e.StartTS)
			continue
		}
		fmt.Printf("[%s] %s\n", name, e.Status)
	}
}

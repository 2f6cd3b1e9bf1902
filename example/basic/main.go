package main

import (
	"context"
	"fmt"
	"log"
	"time"

	maxflow "github.com/maxflow-ai/maxflow-go"
)

func main() {
	client, err := maxflow.Conf("../../maxflow.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	// These three pushes arrive within the quiet period of each other, so
	// they ride the same flush.
	pendings := []*maxflow.Pending{
		client.Push(ctx, map[string]any{"sensor": "temp-1", "value": 21.4}),
		client.Push(ctx, map[string]any{"sensor": "temp-2", "value": 19.8}),
		client.Push(ctx, map[string]any{"sensor": "temp-3", "value": 22.1}),
	}

	for i, p := range pendings {
		resp, err := p.Wait(ctx)
		if err != nil {
			log.Printf("pulse %d failed: %v", i, err)
			continue
		}
		fmt.Printf("pulse %d accepted: %s\n", i, resp)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Close(closeCtx); err != nil {
		log.Fatalf("close: %v", err)
	}
}

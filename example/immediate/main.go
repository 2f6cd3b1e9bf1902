package main

import (
	"context"
	"fmt"
	"log"

	maxflow "github.com/maxflow-ai/maxflow-go"
)

func main() {
	client, err := maxflow.Conf("../../maxflow.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	// An immediate push skips the queue and its timers entirely; any batch
	// already pending keeps its own schedule.
	resp, err := client.PushNow(ctx, map[string]any{"event": "deploy", "version": "1.4.2"})
	if err != nil {
		log.Fatalf("push: %v", err)
	}
	fmt.Printf("accepted: %s\n", resp)
}

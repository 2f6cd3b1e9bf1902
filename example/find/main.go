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

	q := maxflow.FindQuery{
		Match: []maxflow.Condition{
			{Field: "status", Operator: "eq", Value: "active"},
		},
		OrderBy:  []maxflow.Order{{Field: "ts", Order: "desc"}},
		Page:     1,
		PageSize: 50,
	}

	resp, err := client.Find(context.Background(), q)
	if err != nil {
		log.Fatalf("find: %v", err)
	}
	fmt.Println(string(resp))
}

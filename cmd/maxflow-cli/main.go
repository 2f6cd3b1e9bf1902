package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	maxflow "github.com/maxflow-ai/maxflow-go"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "push":
		err = pushCommand(os.Args[2:])
	case "find":
		err = findCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("maxflow-cli %s: %v", cmd, err)
	}
}

// pushCommand reads one JSON payload per stdin line and pushes each through
// the debounce queue, so a burst of lines lands on the API as few requests.
func pushCommand(args []string) error {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	cfgPath := fs.String("config", "./maxflow.yaml", "Path to client configuration file")
	immediate := fs.Bool("immediate", false, "Bypass the queue and send each pulse at once")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := maxflow.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pendings []*maxflow.Pending
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var payload any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			fmt.Fprintf(os.Stderr, "skipping invalid JSON: %v\n", err)
			continue
		}

		if *immediate {
			resp, err := client.PushNow(ctx, payload)
			printOutcome(resp, err)
			continue
		}
		pendings = append(pendings, client.Push(ctx, payload))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, p := range pendings {
		resp, err := p.Wait(ctx)
		printOutcome(resp, err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Close(closeCtx)
}

func findCommand(args []string) error {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	cfgPath := fs.String("config", "./maxflow.yaml", "Path to client configuration file")
	page := fs.Int("page", 0, "Page number (0 leaves paging to the server)")
	pageSize := fs.Int("page-size", 0, "Page size (0 leaves paging to the server)")
	orderBy := fs.String("order-by", "", "Sort field")
	desc := fs.Bool("desc", false, "Sort descending")
	searchText := fs.String("search-text", "", "Free-text search")
	searchFields := fs.String("search-fields", "", "Comma-separated fields for free-text search")

	var matches matchFlags
	fs.Var(&matches, "match", "Match condition as field:operator:value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := maxflow.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	q := maxflow.FindQuery{
		Match:    matches.conditions,
		Page:     *page,
		PageSize: *pageSize,
	}
	if *orderBy != "" {
		order := "asc"
		if *desc {
			order = "desc"
		}
		q.OrderBy = []maxflow.Order{{Field: *orderBy, Order: order}}
	}
	if *searchText != "" {
		q.Search = &maxflow.Search{
			Text:   *searchText,
			Fields: splitNonEmpty(*searchFields),
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := client.Find(ctx, q)
	if err != nil {
		return err
	}
	fmt.Println(string(resp))

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Close(closeCtx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./maxflow.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := maxflow.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"maxflow_pulses_queued_total":     0,
		"maxflow_pulses_dispatched_total": 0,
		"maxflow_dispatch_errors_total":   0,
		"maxflow_queue_length":            0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] queued=%f dispatched=%f errors=%f queue=%f\n",
		time.Now().Format(time.RFC3339),
		targets["maxflow_pulses_queued_total"],
		targets["maxflow_pulses_dispatched_total"],
		targets["maxflow_dispatch_errors_total"],
		targets["maxflow_queue_length"],
	)
	return nil
}

func printOutcome(resp json.RawMessage, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "push failed: %v\n", err)
		return
	}
	if len(resp) == 0 {
		fmt.Println("ok")
		return
	}
	fmt.Println(string(resp))
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// matchFlags collects repeated -match flags into conditions.
type matchFlags struct {
	conditions []maxflow.Condition
}

func (m *matchFlags) String() string {
	return fmt.Sprintf("%d condition(s)", len(m.conditions))
}

func (m *matchFlags) Set(value string) error {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("expected field:operator:value, got %q", value)
	}
	var v any = parts[2]
	var decoded any
	if err := json.Unmarshal([]byte(parts[2]), &decoded); err == nil {
		v = decoded
	}
	m.conditions = append(m.conditions, maxflow.Condition{
		Field:    parts[0],
		Operator: parts[1],
		Value:    v,
	})
	return nil
}

func printUsage() {
	fmt.Printf(`Maxflow CLI

Usage:
  maxflow-cli <command> [flags]

Commands:
  push       Read JSON payloads from stdin and push them through the debounce queue
  find       Run a filtered query against the pulses endpoint
  validate   Load and validate a config file without sending anything
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  cat pulses.jsonl | maxflow-cli push -config ./maxflow.yaml
  maxflow-cli find -match status:eq:active -order-by ts -desc
  maxflow-cli validate -config ./maxflow.yaml
  maxflow-cli stats -url http://localhost:9100/metrics -interval 1s
`)
}

// Faultsim drives a running reservation-guard instance through a
// failure storm: it switches on fault injection for one operation,
// hammers the matching endpoint until the breaker trips, then clears
// the injection and watches the breaker recover.
//
// Usage:
//
//	go run faultsim.go -addr http://localhost:8080 -op availability_check -kind data_access -requests 10
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var operationEndpoints = map[string]struct {
	path    string
	payload string
}{
	"availability_check":   {"/availability", `{"court_id":"court-1","date":"2026-09-01","start_time":"18:00","end_time":"19:00"}`},
	"reservation_creation": {"/reservations", `{"court_id":"court-1","date":"2026-09-01","start_time":"18:00","end_time":"19:00","player_id":"player-1"}`},
	"payment_processing":   {"/payments", `{"reservation_id":"res-1","amount":40.0,"method":"card"}`},
	"price_calculation":    {"/prices", `{"court_id":"court-1","date":"2026-09-01","start_time":"18:00","end_time":"19:00"}`},
	"cancellation":         {"/cancellations", `{"reservation_id":"res-1","reason":"rain"}`},
	"notification":         {"/notifications", `{"recipient":"player-1","channel":"email","body":"court ready"}`},
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "reservation-guard base URL")
	op := flag.String("op", "availability_check", "operation to storm")
	kind := flag.String("kind", "data_access", "fault kind to inject")
	requests := flag.Int("requests", 10, "requests to send during the storm")
	recoveryWait := flag.Duration("recovery-wait", 16*time.Second, "how long to wait before the recovery probe")
	flag.Parse()

	endpoint, ok := operationEndpoints[*op]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown operation %q\n", *op)
		os.Exit(2)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("=== injecting %s failures into %s ===\n", *kind, *op)
	if err := setInjection(client, *addr, *op, *kind); err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable injection: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *requests; i++ {
		status, body := hit(client, *addr+endpoint.path, endpoint.payload)
		fmt.Printf("request %2d -> %d %s\n", i+1, status, body)
	}

	printState(client, *addr, *op)

	fmt.Printf("=== clearing injection, waiting %s for recovery window ===\n", *recoveryWait)
	if err := setInjection(client, *addr, *op, "none"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to clear injection: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(*recoveryWait)

	status, body := hit(client, *addr+endpoint.path, endpoint.payload)
	fmt.Printf("recovery probe -> %d %s\n", status, body)

	printState(client, *addr, *op)
}

func setInjection(client *http.Client, addr, op, kind string) error {
	payload, _ := json.Marshal(map[string]string{"operation": op, "kind": kind})
	res, err := client.Post(addr+"/simulate/failures", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

func hit(client *http.Client, url, payload string) (int, string) {
	res, err := client.Post(url, "application/json", bytes.NewBufferString(payload))
	if err != nil {
		return 0, err.Error()
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	trimmed := string(bytes.TrimSpace(body))
	if len(trimmed) > 120 {
		trimmed = trimmed[:120] + "..."
	}
	return res.StatusCode, trimmed
}

func printState(client *http.Client, addr, op string) {
	res, err := client.Get(addr + "/stats/" + op)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch stats: %v\n", err)
		return
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	fmt.Printf("breaker stats: %s\n", bytes.TrimSpace(body))
}

// Command loadtest fires concurrent ticket submissions at a running
// TriageX server and reports acceptance and latency stats. The -storm
// flag additionally sends a burst of near-identical tickets to exercise
// storm detection.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var sampleTexts = []string{
	"My API is completely broken and production is DOWN right now, ASAP fix needed!",
	"I need a refund for the invoice I was charged twice.",
	"Your GDPR compliance is questionable; our legal team is reviewing.",
	"Can you help me reset my password? I forgot it.",
	"The dashboard loads very slowly today.",
	"Critical bug! The login page crashes on every submit, losing customers!",
	"Subscription was cancelled but you still billed me. This is fraud!",
	"Please send our service agreement and data processing addendum.",
	"We believe your data retention policy does not comply with CCPA.",
	"Server is returning 500 errors on the /orders endpoint, production is down!",
}

type submitResult struct {
	ok      bool
	status  int
	elapsed time.Duration
}

func main() {
	apiURL := flag.String("url", "http://localhost:8080", "TriageX server base URL")
	numTickets := flag.Int("tickets", 20, "Number of tickets to submit concurrently")
	concurrency := flag.Int("concurrency", 20, "Number of concurrent submitters")
	storm := flag.Int("storm", 0, "Additionally submit this many near-identical tickets")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	fmt.Printf("Submitting %d tickets with concurrency %d against %s\n", *numTickets, *concurrency, *apiURL)

	var accepted, failed uint64
	results := make([]submitResult, *numTickets)

	jobs := make(chan int, *numTickets)
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id := fmt.Sprintf("LOAD-%04d-%d", i, start.UnixNano()%100000)
				text := sampleTexts[i%len(sampleTexts)]
				res := submit(client, *apiURL, id, text)
				results[i] = res
				if res.ok {
					atomic.AddUint64(&accepted, 1)
				} else {
					atomic.AddUint64(&failed, 1)
				}
			}
		}()
	}
	for i := 0; i < *numTickets; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	total := time.Since(start)

	printStats(results, accepted, failed, total)

	if *storm > 0 {
		fmt.Printf("\nStorm burst: %d near-identical tickets\n", *storm)
		for i := 0; i < *storm; i++ {
			id := fmt.Sprintf("STORM-%04d-%d", i, start.UnixNano()%100000)
			res := submit(client, *apiURL, id, "Checkout page shows error 500 when paying, cannot complete my order!")
			status := "rejected"
			if res.ok {
				status = "accepted"
			}
			fmt.Printf("  %s: %s (%d) in %v\n", id, status, res.status, res.elapsed.Round(time.Millisecond))
		}
	}
}

func submit(client *http.Client, apiURL, id, text string) submitResult {
	payload, _ := json.Marshal(map[string]string{"id": id, "text": text})
	start := time.Now()
	resp, err := client.Post(apiURL+"/ticket", "application/json", bytes.NewReader(payload))
	elapsed := time.Since(start)
	if err != nil {
		return submitResult{ok: false, elapsed: elapsed}
	}
	defer resp.Body.Close()
	return submitResult{ok: resp.StatusCode == http.StatusAccepted, status: resp.StatusCode, elapsed: elapsed}
}

func printStats(results []submitResult, accepted, failed uint64, total time.Duration) {
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		latencies = append(latencies, r.elapsed)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println("--------------------------------------------------")
	fmt.Printf("Accepted:   %d\n", accepted)
	fmt.Printf("Failed:     %d\n", failed)
	fmt.Printf("Duration:   %v\n", total)
	if len(latencies) > 0 {
		fmt.Printf("Latency:    min=%v p50=%v p95=%v max=%v\n",
			latencies[0].Round(time.Millisecond),
			latencies[len(latencies)/2].Round(time.Millisecond),
			latencies[len(latencies)*95/100].Round(time.Millisecond),
			latencies[len(latencies)-1].Round(time.Millisecond))
	}
	fmt.Println("--------------------------------------------------")
}

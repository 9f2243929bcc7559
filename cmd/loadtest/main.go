// Command loadtest drives POST /api/transfers at a constant arrival rate and
// prints a latency and status summary followed by the server's own stats.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/storage"
)

type options struct {
	baseURL  string
	rps      int
	duration time.Duration
	workers  int
	accounts int
	amount   int64
	currency string
	timeout  time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.baseURL, "url", "http://localhost:8080", "server base URL")
	flag.IntVar(&o.rps, "rps", 1_000, "requests per second")
	flag.DurationVar(&o.duration, "duration", 60*time.Second, "test duration")
	flag.IntVar(&o.workers, "workers", 256, "concurrent senders")
	flag.IntVar(&o.accounts, "accounts", 200_000, "number of pre-provisioned accounts to draw from")
	flag.Int64Var(&o.amount, "amount", 2_500, "amount per transfer in minor units")
	flag.StringVar(&o.currency, "currency", "BRL", "currency code")
	flag.DurationVar(&o.timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(o, log); err != nil {
		log.Error("load test failed", "error", err)
		os.Exit(1)
	}
}

func run(o options, log *slog.Logger) error {
	if o.rps <= 0 || o.workers <= 0 || o.accounts < 2 {
		return errors.New("rps and workers must be positive and accounts at least 2")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, o.duration)
	defer cancel()

	client := &http.Client{
		Timeout: o.timeout,
		Transport: &http.Transport{
			MaxIdleConns:        o.workers,
			MaxIdleConnsPerHost: o.workers,
		},
	}
	limiter := rate.NewLimiter(rate.Limit(o.rps), max(1, o.rps/100))
	results := make([]*recorder, o.workers)

	log.Info("starting load test", "url", o.baseURL, "rps", o.rps, "duration", o.duration, "workers", o.workers)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := range o.workers {
		rec := newRecorder()
		results[i] = rec
		g.Go(func() error {
			for {
				if err := limiter.Wait(gctx); err != nil {
					return nil // deadline reached
				}
				send(gctx, client, o, rec)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summary := merge(results)
	summary.Print(os.Stdout, time.Since(start))

	snapshot, err := fetchStats(context.Background(), client, o.baseURL)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	out, _ := json.MarshalIndent(snapshot, "", "  ")
	fmt.Printf("\nserver stats:\n%s\n", out)
	return nil
}

func send(ctx context.Context, client *http.Client, o options, rec *recorder) {
	from := rand.IntN(o.accounts)
	body, _ := json.Marshal(models.TransferRequest{
		IdempotencyKey:   uuid.NewString(),
		FromAccount:      storage.ProvisionedAccountID(from),
		ToAccount:        storage.ProvisionedAccountID((from + 1) % o.accounts),
		AmountMinorUnits: o.amount,
		Currency:         o.currency,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/transfers", bytes.NewReader(body))
	if err != nil {
		rec.Failure()
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			rec.Failure()
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	rec.Observe(resp.StatusCode, time.Since(start))
}

func fetchStats(ctx context.Context, client *http.Client, baseURL string) (models.StatsSnapshot, error) {
	var snapshot models.StatsSnapshot

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/transfers/stats", nil)
	if err != nil {
		return snapshot, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return snapshot, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&snapshot)
	return snapshot, err
}

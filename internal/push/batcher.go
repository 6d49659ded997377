package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"
)

const DefaultBatchSize = 100

// Result summarizes one Dispatch call.
type Result struct {
	Tokens  int
	Batches int
	Failed  int
}

// Batcher dedupes device tokens and hands them to a Provider in fixed-size
// batches. A failed batch is logged and skipped; it is never retried and
// never stops the remaining batches.
type Batcher struct {
	provider    Provider
	batchSize   int
	concurrency int
}

func NewBatcher(provider Provider, batchSize, concurrency int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Batcher{provider: provider, batchSize: batchSize, concurrency: concurrency}
}

func (b *Batcher) Dispatch(ctx context.Context, tokens []string, n Notification) Result {
	unique := Dedupe(tokens)
	if len(unique) == 0 {
		return Result{}
	}

	batches := Partition(unique, b.batchSize)
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, batch := range batches {
		i := i
		msgs := toMessages(batch, n)
		g.Go(func() error {
			if err := b.provider.SendBatch(gctx, msgs); err != nil {
				failed.Add(1)
				slog.Error("push batch failed",
					"component", "push",
					"batch", i,
					"size", len(msgs),
					"error", err,
				)
				sentry.CaptureException(fmt.Errorf("push batch %d: %w", i, err))
			}
			// Swallowed so one failure does not cancel sibling batches.
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Tokens: len(unique), Batches: len(batches), Failed: int(failed.Load())}
	slog.Info("push dispatched",
		"component", "push",
		"tokens", res.Tokens,
		"batches", res.Batches,
		"failed", res.Failed,
	)
	return res
}

// Dedupe drops empty and repeated tokens, keeping first-seen order.
func Dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Partition splits tokens into consecutive chunks of at most size.
func Partition(tokens []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		batches = append(batches, tokens[start:end])
	}
	return batches
}

func toMessages(tokens []string, n Notification) []Message {
	msgs := make([]Message, len(tokens))
	for i, t := range tokens {
		msgs[i] = Message{
			To:        t,
			Title:     n.Title,
			Body:      n.Body,
			Sound:     "default",
			Priority:  "high",
			ChannelID: "sos-alerts",
			Data:      n.Data,
		}
	}
	return msgs
}

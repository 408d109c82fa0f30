package probe

import (
	"context"
	"strings"
	"sync"
)

// run applies fn to every target with at most workers goroutines and
// collects the results by target. Targets not reached before ctx is done
// are missing from the result.
func run[R any](ctx context.Context, workers int, targets []string, fn func(context.Context, string) R) map[string]R {
	results := make(map[string]R, len(targets))
	if len(targets) == 0 {
		return results
	}

	if workers <= 0 || workers > len(targets) {
		workers = len(targets)
	}

	type result struct {
		target string
		value  R
	}

	jobs := make(chan string, len(targets))
	out := make(chan result, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
					out <- result{target: target, value: fn(ctx, target)}
				}
			}
		}()
	}

	go func() {
		for _, t := range targets {
			jobs <- t
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.target] = r.value
	}
	return results
}

// selectTargets keeps the first limit unique http(s) URLs in order.
func selectTargets(urls []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range urls {
		if limit > 0 && len(out) >= limit {
			break
		}
		if u == "" || seen[u] || !isHTTP(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func isHTTP(u string) bool {
	return len(u) >= 4 && strings.EqualFold(u[:4], "http")
}

/*
	Churn workload for a running kvs server. Each worker owns its own key
	space and mirrors it in a local map, so every read can be checked: values
	written must come back, removed keys must be gone, and removing an absent
	key must report not found. One worker also triggers compaction while the
	others keep writing, which exercises the rewrite under load.
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xRadioAc7iv/go-kvlog/client"
	"github.com/0xRadioAc7iv/go-kvlog/internal/config"
)

type workload struct {
	opts         []client.Option
	keysPerOwner int
	ops          int
	compactEvery int

	writes     atomic.Int64
	removes    atomic.Int64
	reads      atomic.Int64
	mismatches atomic.Int64
}

func main() {
	host := flag.String("host", config.DefaultHost, "kvs server host")
	port := flag.Int("port", config.DefaultPort, "kvs server port")
	workers := flag.Int("workers", 6, "concurrent clients")
	ops := flag.Int("ops", 20000, "operations per worker")
	keys := flag.Int("keys", 50, "keys owned by each worker")
	compactEvery := flag.Int("compact-every", 5000, "operations between compactions issued by worker 0, 0 disables")
	flag.Parse()

	w := &workload{
		opts:         []client.Option{client.WithHost(*host), client.WithPort(*port)},
		keysPerOwner: *keys,
		ops:          *ops,
		compactEvery: *compactEvery,
	}

	start := time.Now()
	fmt.Printf("kvs churn: %d workers x %d ops on %d keys each\n", *workers, *ops, *keys)

	var wg sync.WaitGroup
	for id := 0; id < *workers; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.run(id); err != nil {
				fmt.Printf("[worker %d] %v\n", id, err)
				w.mismatches.Add(1)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("done in %v: %d sets, %d removes, %d verified reads, %d mismatches\n",
		time.Since(start), w.writes.Load(), w.removes.Load(), w.reads.Load(), w.mismatches.Load())

	if w.mismatches.Load() > 0 {
		os.Exit(1)
	}
}

// run drives one client through random sets and removes over the worker's
// keys, checking a random key against the local model after every step.
func (w *workload) run(id int) error {
	c, err := client.Connect(w.opts...)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	model := make(map[string]string, w.keysPerOwner)
	key := func() string {
		return fmt.Sprintf("w%d/key-%03d", id, rng.Intn(w.keysPerOwner))
	}

	for i := 1; i <= w.ops; i++ {
		k := key()

		if rng.Intn(10) < 3 {
			err := c.Remove(k)
			_, present := model[k]
			switch {
			case err == nil && present:
				delete(model, k)
			case errors.Is(err, client.ErrKeyNotFound) && !present:
			case err != nil && !errors.Is(err, client.ErrKeyNotFound):
				return fmt.Errorf("rm %s: %w", k, err)
			default:
				w.mismatch(id, "rm %s: present=%v err=%v", k, present, err)
			}
			w.removes.Add(1)
		} else {
			v := fmt.Sprintf("%d:%d:%x", id, i, rng.Int63())
			if err := c.Set(k, v); err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
			model[k] = v
			w.writes.Add(1)
		}

		if err := w.verify(id, c, model, key()); err != nil {
			return err
		}

		if id == 0 && w.compactEvery > 0 && i%w.compactEvery == 0 {
			summary, err := c.Compact()
			if err != nil {
				return fmt.Errorf("compact: %w", err)
			}
			fmt.Printf("[worker 0] after %d ops: %s\n", i, summary)
		}
	}

	// final pass over the whole key space
	for n := 0; n < w.keysPerOwner; n++ {
		if err := w.verify(id, c, model, fmt.Sprintf("w%d/key-%03d", id, n)); err != nil {
			return err
		}
	}
	return nil
}

func (w *workload) verify(id int, c *client.Client, model map[string]string, k string) error {
	got, found, err := c.Get(k)
	if err != nil {
		return fmt.Errorf("get %s: %w", k, err)
	}
	w.reads.Add(1)

	want, ok := model[k]
	if found != ok || got != want {
		w.mismatch(id, "get %s: got (%q, %v), want (%q, %v)", k, got, found, want, ok)
	}
	return nil
}

func (w *workload) mismatch(id int, format string, args ...any) {
	w.mismatches.Add(1)
	fmt.Printf("[worker %d] mismatch: %s\n", id, fmt.Sprintf(format, args...))
}

package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// EmbedFunc embeds a single text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedConcurrently runs embed for every text on pool and returns the vectors in
// input order. The first failure cancels the remaining work and is returned.
func EmbedConcurrently(ctx context.Context, pool *ants.Pool, texts []string, embed EmbedFunc) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, text := range texts {
		if workCtx.Err() != nil {
			break
		}
		wg.Add(1)
		i, text := i, text
		err := pool.Submit(func() {
			defer wg.Done()
			if workCtx.Err() != nil {
				return
			}
			vec, err := embed(workCtx, text)
			if err != nil {
				fail(fmt.Errorf("embed text %d: %w", i, err))
				return
			}
			out[i] = vec
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit embed task: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package trial

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/descentbench/internal/opt"
)

// Compare runs trials concurrently, one goroutine per trial, and returns
// their results in input order. Each trial must own its optimizer.
// The first failing trial cancels the others.
func Compare(ctx context.Context, trials []Trial, opts ...Option) ([]*Result, error) {
	seen := make(map[opt.Optimizer]string, len(trials))
	for _, t := range trials {
		if t.Optimizer == nil {
			continue
		}
		if other, ok := seen[t.Optimizer]; ok {
			return nil, fmt.Errorf("trials %q and %q share an optimizer instance", other, t.Name)
		}
		seen[t.Optimizer] = t.Name
	}

	slog.Info("Comparing optimizers", "trials", len(trials))

	results := make([]*Result, len(trials))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range trials {
		g.Go(func() error {
			res, err := Run(gctx, t, opts...)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

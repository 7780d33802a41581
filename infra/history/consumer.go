package history

import (
	"context"

	"github.com/kilianp07/octoslots/core/state"
	"github.com/kilianp07/octoslots/infra/logger"
	"github.com/kilianp07/octoslots/internal/eventbus"
)

// Start appends a Record for every state published on bus until ctx is done.
func Start(ctx context.Context, bus *eventbus.TypedBus[state.State], store Store, log logger.Logger) {
	ch := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-ch:
				if !ok {
					return
				}
				if err := store.Append(ctx, NewRecord(st)); err != nil {
					log.Errorf("history append: %v", err)
				}
			}
		}
	}()
}

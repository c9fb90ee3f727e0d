package channels

import (
	"context"
	"strings"
	"sync"

	leadservice "outreach_backend/internal/leads/service"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Syncer fans out over the enabled channels, feeds every fetched lead
// through the resolver and reports per-channel counts. It implements the
// leads handler's Syncer port.
type Syncer struct {
	fetchers []Fetcher
	resolver *leadservice.Service
	log      *logger.Logger
}

func NewSyncer(resolver *leadservice.Service, log *logger.Logger, fetchers ...Fetcher) *Syncer {
	return &Syncer{
		fetchers: fetchers,
		resolver: resolver,
		log:      log,
	}
}

// HasEnabledChannels reports whether any channel is configured.
func (s *Syncer) HasEnabledChannels() bool {
	for _, f := range s.fetchers {
		if f.Enabled() {
			return true
		}
	}
	return false
}

// Sync runs the requested channels in parallel. An empty filter means all
// enabled channels. Channel failures are reported per channel, never as a
// whole-run error; one broken upstream must not hide the others' leads.
func (s *Syncer) Sync(ctx context.Context, channels []string) []transport.SyncChannelResult {
	requested := make(map[string]bool, len(channels))
	for _, name := range channels {
		requested[strings.ToUpper(name)] = true
	}

	var (
		mu      sync.Mutex
		results []transport.SyncChannelResult
	)
	g, ctx := errgroup.WithContext(ctx)

	for _, fetcher := range s.fetchers {
		if !fetcher.Enabled() {
			continue
		}
		if len(requested) > 0 && !requested[fetcher.Name()] {
			continue
		}

		fetcher := fetcher
		g.Go(func() error {
			result := s.syncChannel(ctx, fetcher)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (s *Syncer) syncChannel(ctx context.Context, fetcher Fetcher) transport.SyncChannelResult {
	result := transport.SyncChannelResult{Channel: fetcher.Name()}

	inputs, err := fetcher.Fetch(ctx)
	if err != nil {
		result.Error = err.Error()
		s.log.SyncEvent(fetcher.Name(), 0, 0, err)
		return result
	}
	result.Fetched = len(inputs)

	for _, input := range inputs {
		_, created, err := s.resolver.Resolve(ctx, input)
		if err != nil {
			// Individual bad rows (usually unparseable phone numbers)
			// are logged and skipped.
			s.log.Warn("sync row skipped",
				"channel", fetcher.Name(),
				"source_id", input.SourceID,
				"error", err.Error(),
			)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.log.SyncEvent(fetcher.Name(), result.Created, result.Updated, nil)
	return result
}

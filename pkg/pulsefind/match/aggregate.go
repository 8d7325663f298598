package match

import (
	"context"
	"sync"
	"time"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// PlatformSearcher is a secondary platform search collaborator: given a
// title and artist it returns zero or more candidate identifiers/metadata.
type PlatformSearcher interface {
	Name() string
	Search(ctx context.Context, title, artist string) ([]models.MatchCandidate, error)
}

// CatalogResolver performs the fallback direct catalog lookup for a
// candidate still missing a platform identifier after aggregation.
type CatalogResolver interface {
	Name() string
	Lookup(ctx context.Context, title, artist string) (*models.MatchCandidate, error)
}

const defaultPlatformTimeout = 10 * time.Second

// Aggregator enriches recognized candidates with identifiers from secondary
// platforms.
type Aggregator struct {
	platforms []PlatformSearcher
	resolver  CatalogResolver
	log       Logger

	platformTimeout time.Duration
}

func NewAggregator(platforms []PlatformSearcher, resolver CatalogResolver, log Logger) *Aggregator {
	return &Aggregator{
		platforms:       platforms,
		resolver:        resolver,
		log:             log,
		platformTimeout: defaultPlatformTimeout,
	}
}

// platformBatch is the complete result of one platform search for one song.
// Batches are collected fully, then folded sequentially into the candidate
// set, so no concurrent task ever mutates a shared candidate.
type platformBatch struct {
	platform string
	results  []models.MatchCandidate
	err      error
}

// Enrich fans out one search per distinct candidate song per platform, then
// merges the collected batches. Every input candidate keeps at least its
// primary source even when no platform confirms it. Unmatched platform
// results become new candidates of their own.
func (a *Aggregator) Enrich(ctx context.Context, candidates []models.MatchCandidate, topK int) []models.MatchCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	distinct := distinctSongs(candidates, topK)
	batches := a.collectBatches(ctx, distinct)

	merged := make([]models.MatchCandidate, len(candidates))
	copy(merged, candidates)

	for _, batch := range batches {
		if batch.err != nil {
			a.log.Warnf("platform %s search failed: %v", batch.platform, batch.err)
			continue
		}
		for _, result := range batch.results {
			merged = foldResult(merged, result, batch.platform)
		}
	}

	return a.resolveMissingIDs(ctx, merged)
}

// distinctSongs picks the first topK candidates with distinct normalized
// title|artist identities, preserving discovery order.
func distinctSongs(candidates []models.MatchCandidate, topK int) []models.MatchCandidate {
	seen := make(map[string]struct{})
	out := make([]models.MatchCandidate, 0, topK)
	for _, cand := range candidates {
		key := IdentityKey(cand.Title, cand.Artist)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
		if len(out) == topK {
			break
		}
	}
	return out
}

// collectBatches runs one search per song per platform concurrently and
// waits for all of them. Each batch is immutable once collected.
func (a *Aggregator) collectBatches(ctx context.Context, songs []models.MatchCandidate) []platformBatch {
	batches := make([]platformBatch, 0, len(songs)*len(a.platforms))
	ch := make(chan platformBatch)
	var wg sync.WaitGroup

	for _, platform := range a.platforms {
		for _, song := range songs {
			wg.Add(1)
			go func(p PlatformSearcher, title, artist string) {
				defer wg.Done()

				searchCtx, cancel := context.WithTimeout(ctx, a.platformTimeout)
				defer cancel()

				results, err := p.Search(searchCtx, title, artist)
				ch <- platformBatch{platform: p.Name(), results: results, err: err}
			}(platform, song.Title, song.Artist)
		}
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	for batch := range ch {
		batches = append(batches, batch)
	}
	return batches
}

// foldResult merges one platform result into the candidate set. A result
// matches an existing candidate when it shares a known platform ID or its
// normalized title and artist are equal or one contains the other.
func foldResult(candidates []models.MatchCandidate, result models.MatchCandidate, platformName string) []models.MatchCandidate {
	for i := range candidates {
		cand := &candidates[i]
		if cand.PlatformIDs.SharesAny(result.PlatformIDs) ||
			SameSong(cand.Title, cand.Artist, result.Title, result.Artist) {

			cand.PlatformIDs.Merge(result.PlatformIDs)
			if cand.URL == "" {
				cand.URL = result.URL
			}
			if cand.ArtworkURL == "" {
				cand.ArtworkURL = result.ArtworkURL
			}
			if cand.PreviewURL == "" {
				cand.PreviewURL = result.PreviewURL
			}
			if cand.Album == "" {
				cand.Album = result.Album
			}
			if cand.ISRC == "" {
				cand.ISRC = result.ISRC
			}
			if cand.Popularity == 0 {
				cand.Popularity = result.Popularity
			}
			cand.AddSource(models.Source{Kind: models.SourcePlatform, Name: platformName})
			return candidates
		}
	}

	// Brand-new candidate discovered by the platform.
	result.Sources = []models.Source{{Kind: models.SourcePlatform, Name: platformName}}
	result.MatchQuality = models.QualityForConfidence(result.Confidence)
	return append(candidates, result)
}

// resolveMissingIDs gives each candidate one direct catalog lookup for a
// platform identifier aggregation did not surface.
func (a *Aggregator) resolveMissingIDs(ctx context.Context, candidates []models.MatchCandidate) []models.MatchCandidate {
	if a.resolver == nil {
		return candidates
	}

	for i := range candidates {
		cand := &candidates[i]
		if cand.PlatformIDs.AppleMusic != "" {
			continue
		}

		lookupCtx, cancel := context.WithTimeout(ctx, a.platformTimeout)
		resolved, err := a.resolver.Lookup(lookupCtx, cand.Title, cand.Artist)
		cancel()
		if err != nil {
			a.log.Debugf("catalog lookup for %q by %q failed: %v", cand.Title, cand.Artist, err)
			continue
		}
		if resolved == nil {
			continue
		}

		cand.PlatformIDs.Merge(resolved.PlatformIDs)
		if cand.ArtworkURL == "" {
			cand.ArtworkURL = resolved.ArtworkURL
		}
		if cand.PreviewURL == "" {
			cand.PreviewURL = resolved.PreviewURL
		}
	}

	return candidates
}

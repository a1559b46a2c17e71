package capability

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedMetadataClient wraps a MetadataClient with a per-service
// token-bucket limiter (spec §5: "every rate-limiter acquisition" is a
// suspension point, cancellable via the caller's context). Grounded on the
// idiomatic golang.org/x/time/rate usage seen across the pack
// (prometheus-engine, xg2g) for exactly this outbound-QPS-capping role —
// the teacher itself has no outbound rate limiting to generalize from.
type RateLimitedMetadataClient struct {
	inner   MetadataClient
	limiter *rate.Limiter
}

// NewRateLimitedMetadataClient wraps inner with a limiter allowing
// qps requests per second, bursting up to burst.
func NewRateLimitedMetadataClient(inner MetadataClient, qps float64, burst int) *RateLimitedMetadataClient {
	return &RateLimitedMetadataClient{inner: inner, limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

func (c *RateLimitedMetadataClient) FuzzySearchArtist(ctx context.Context, name string) (*ArtistMatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.FuzzySearchArtist(ctx, name)
}

func (c *RateLimitedMetadataClient) ArtistReleaseGroups(ctx context.Context, identifier string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.ArtistReleaseGroups(ctx, identifier)
}

func (c *RateLimitedMetadataClient) Close() error { return c.inner.Close() }

// RateLimitedRecommenderClient applies the same per-service token-bucket
// policy to a RecommenderClient.
type RateLimitedRecommenderClient struct {
	inner   RecommenderClient
	limiter *rate.Limiter
}

func NewRateLimitedRecommenderClient(inner RecommenderClient, qps float64, burst int) *RateLimitedRecommenderClient {
	return &RateLimitedRecommenderClient{inner: inner, limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

func (c *RateLimitedRecommenderClient) GetSimilar(ctx context.Context, identifier, name string, limit int) ([]Similar, []Similar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.GetSimilar(ctx, identifier, name, limit)
}

func (c *RateLimitedRecommenderClient) Close() error { return c.inner.Close() }

// RateLimitedPlaylistSource applies the same policy to a PlaylistSource.
type RateLimitedPlaylistSource struct {
	inner   PlaylistSource
	limiter *rate.Limiter
}

func NewRateLimitedPlaylistSource(inner PlaylistSource, qps float64, burst int) *RateLimitedPlaylistSource {
	return &RateLimitedPlaylistSource{inner: inner, limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

func (c *RateLimitedPlaylistSource) PlaylistInfo(ctx context.Context, url string) (PlaylistInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return PlaylistInfo{}, fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.PlaylistInfo(ctx, url)
}

func (c *RateLimitedPlaylistSource) PlaylistTracks(ctx context.Context, url string) ([]PlaylistTrack, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.PlaylistTracks(ctx, url)
}

func (c *RateLimitedPlaylistSource) CuratedPlaylists(ctx context.Context, user string) (map[string]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.CuratedPlaylists(ctx, user)
}

func (c *RateLimitedPlaylistSource) Close() error { return c.inner.Close() }

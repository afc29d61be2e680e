// Package retry wraps idempotent Recoup API reads in bounded retries with
// exponential backoff.
//
// Only transient classes (network, rate limit, server error) are retried;
// context cancellation stops both the attempt loop and the backoff wait.
// Scrape launches are never passed through this package because a retried
// start could launch a second run for the same target.
//
//	socials, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) ([]byte, error) {
//	    return client.get(ctx, url)
//	})
package retry

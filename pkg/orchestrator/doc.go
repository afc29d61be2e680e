// Package orchestrator composes the batcher, scrapability filter, launcher
// and poller into complete scrape invocations.
//
// Every invocation follows the same pipeline:
//
//  1. resolve the artists (one artist, or the first N pro artists)
//  2. fetch their socials in paced batches and drop non-scrapable profiles
//  3. launch one run per scrapable social, or one bulk call per artist
//  4. poll every started run to a terminal state
//  5. wait for the settle delay and re-fetch the socials
//  6. emit a ScrapeOutcome, optionally notify and persist it
//
// An invocation aborts on configuration errors, on an infrastructure
// failure during launch, and when no run started at all. Past that gate it
// always completes and reports per-run status in the outcome. The whole
// invocation runs under the configured maximum duration.
//
// Usage:
//
//	client := recoup.NewClient(cfg, log)
//	orch, err := orchestrator.New(cfg, orchestrator.Deps{
//	    Store:   client,
//	    Starter: client,
//	    Pro:     client,
//	}, log)
//	if err != nil {
//	    return err
//	}
//	outcome, err := orch.ScrapeArtist(ctx, artistID)
package orchestrator

// Package ratelimit guards outbound Recoup API calls.
//
// TokenBucket refills to capacity once per period and is the default
// (see PerMinute). SlidingWindow tracks individual request times, so a
// burst at the end of one minute cannot be followed by a full allowance at
// the start of the next. New picks one by Strategy. Unlimited disables
// limiting, which tests use.
//
// Every Wait takes a context so a cancelled invocation never stays parked
// on the limiter:
//
//	limiter := ratelimit.PerMinute(120)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit

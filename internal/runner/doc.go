// Package runner fans out one benchmark run's requests and joins them.
//
// A run issues a fixed number of requests in parallel, optionally capped by
// MaxInFlight and paced by RatePerSecond, and returns only after every slot
// has settled:
//
//	r := runner.New(runner.Options{
//		Requests:  spec.Concurrency,
//		Requester: requester,
//		Recorder:  collector,
//	})
//	res := r.Run(ctx)
//
// A failed slot never cancels its siblings. Each slot reaches the Recorder
// exactly once, so successes plus errors always equals Requests. Slots that
// never launch because the context ended are reported with
// [benchmark.ErrAborted].
//
// # Middleware
//
//   - [WithRetry] re-issues failed requests with optional backoff
//   - [WithLogging] reports failures to a [FailureLogger]
package runner

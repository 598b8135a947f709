// Package asyncx holds the small set of concurrency helpers the services use.
//
// [WithTimeout] bounds a single blocking call, such as a health probe or an
// outbound notification. [Dispatcher] is a bounded best-effort queue: submitting never
// blocks, a full queue drops the task, and task errors are logged and
// discarded. It is meant for side effects whose loss is acceptable, such as
// bumping a last-used timestamp.
//
//	d := asyncx.NewDispatcher(1024, 2)
//	defer d.Close(ctx)
//
//	d.Dispatch("apikey.touch", func(ctx context.Context) error {
//	    return repo.TouchLastUsed(ctx, keyID, now)
//	})
package asyncx

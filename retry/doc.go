/*
Package retry provides caller-directed retries with exponential backoff.

Table operations never retry on their own. Callers that want to ride out
transient transport faults wrap the call:

	err := retry.Do(ctx, "upsert", retry.DefaultConfig(), func(ctx context.Context) error {
		_, err := table.UpsertMerge(ctx, customer)
		return err
	})

When MaxElapsed is set the attempt count is ignored and retries continue until
the time budget is spent.
*/
package retry

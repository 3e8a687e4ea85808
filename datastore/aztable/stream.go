/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package aztable

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/suparena/tablestore/entity"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// continuation is the service's paging cursor.
type continuation struct {
	partitionKey *string
	rowKey       *string
}

func (c continuation) done() bool {
	return c.partitionKey == nil && c.rowKey == nil
}

// fetchPage requests one page starting at next. A fresh pager is built per page so a
// failed page can be requested again without losing the cursor.
func (t *table) fetchPage(ctx context.Context, params *storagemodels.QueryParams, top *int32, next continuation) (aztables.ListEntitiesResponse, error) {
	opts := &aztables.ListEntitiesOptions{
		Top:              top,
		NextPartitionKey: next.partitionKey,
		NextRowKey:       next.rowKey,
	}
	if params.Filter != "" {
		opts.Filter = to.Ptr(params.Filter)
	}
	if len(params.Select) > 0 {
		opts.Select = to.Ptr(strings.Join(params.Select, ","))
	}
	pager := t.client.NewListEntitiesPager(opts)
	if !pager.More() {
		return aztables.ListEntitiesResponse{}, nil
	}
	page, err := pager.NextPage(ctx)
	if err != nil {
		return aztables.ListEntitiesResponse{}, mapError("query", t.name, err)
	}
	return page, nil
}

// Stream lists entities page by page on a background goroutine.
func (t *table) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*entity.Entity] {
	options := storagemodels.ApplyStreamOptions(opts...)
	if params == nil {
		params = &storagemodels.QueryParams{}
	}
	resultCh := make(chan storagemodels.StreamResult[*entity.Entity], options.BufferSize)
	go t.streamWorker(ctx, params, options, resultCh)
	return resultCh
}

func (t *table) streamWorker(
	ctx context.Context,
	params *storagemodels.QueryParams,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[*entity.Entity],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	var errs []error
	var mu sync.Mutex

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		mu.Lock()
		progress := storagemodels.StreamProgress{
			ItemsProcessed: atomic.LoadInt64(&itemIndex),
			PagesProcessed: pageNumber,
			Errors:         append([]error(nil), errs...),
			StartTime:      startTime,
		}
		mu.Unlock()
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	top := params.Top
	if top == nil && options.PageSize > 0 {
		top = to.Ptr(options.PageSize)
	}

	var next continuation
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		page, err := t.fetchWithRetry(ctx, params, top, next, options)
		if err != nil {
			if tserrors.IsRetryable(err) && options.ErrorHandler != nil && options.ErrorHandler(err) {
				// the cursor is unchanged, so continuing re-requests the same page
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				select {
				case <-ctx.Done():
					return
				case <-time.After(resumeBackoff(options)):
				}
				continue
			}
			select {
			case <-ctx.Done():
			case resultCh <- storagemodels.StreamResult[*entity.Entity]{
				Error: fmt.Errorf("query failed: %w", err),
				Meta: storagemodels.StreamMeta{
					Index:      atomic.LoadInt64(&itemIndex),
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}:
			}
			return
		}

		pageNumber++
		for _, raw := range page.Entities {
			result := storagemodels.StreamResult[*entity.Entity]{
				Raw: raw,
				Meta: storagemodels.StreamMeta{
					Index:      atomic.LoadInt64(&itemIndex),
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			result.Item, result.Error = entity.UnmarshalWire(raw)
			atomic.AddInt64(&itemIndex, 1)

			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
			if result.Error != nil {
				mu.Lock()
				errs = append(errs, result.Error)
				mu.Unlock()
			}
		}

		reportProgress()

		next = continuation{partitionKey: page.NextPartitionKey, rowKey: page.NextRowKey}
		if next.done() {
			return
		}
	}
}

// resumeBackoff is the pause before a page is requested again after the error handler
// chose to continue.
func resumeBackoff(options storagemodels.StreamOptions) time.Duration {
	if options.RetryBackoff > 0 {
		return options.RetryBackoff
	}
	return storagemodels.DefaultStreamOptions().RetryBackoff
}

// fetchWithRetry retries a page on transport errors up to options.MaxRetries times.
func (t *table) fetchWithRetry(
	ctx context.Context,
	params *storagemodels.QueryParams,
	top *int32,
	next continuation,
	options storagemodels.StreamOptions,
) (aztables.ListEntitiesResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		page, err := t.fetchPage(ctx, params, top, next)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !tserrors.IsRetryable(err) {
			return aztables.ListEntitiesResponse{}, err
		}
		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return aztables.ListEntitiesResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return aztables.ListEntitiesResponse{}, lastErr
}

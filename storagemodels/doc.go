/*
Package storagemodels contains the query and streaming parameter types shared by
the datastore backends.

Queries take an OData filter:

	params := &storagemodels.QueryParams{
	    Filter: storagemodels.PartitionFilter("1"),
	    Select: []string{"Email"},
	}

Streams are configured with functional options:

	results := table.Stream(ctx, params,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        log.Printf("processed %d entities", p.ItemsProcessed)
	    }),
	)
*/
package storagemodels

/*
Package tablestore is a client for Azure Table storage built around scoped credentials:
account-key clients that create tables and mint shared access signatures, and SAS-only
handles that can do exactly what their token grants.

Key Features:
  - Merge and replace upserts, strict deletes with ETag conditions
  - Ad-hoc and stored-policy SAS generation
  - Stored access policy management with propagation polling
  - SAS permission probing with expected-deny reporting
  - Semantic error types (NotFound, PreconditionFailed, AuthorizationDenied, ...)
  - Typed tables driven by registered key templates
  - In-memory backend for tests (datastore/mock)

Basic Usage:

	client, err := tablestore.NewClient(os.Getenv("StorageConnectionString"))
	if err != nil {
	    return err
	}
	table, err := client.EnsureTable(ctx, "Customers")
	if err != nil {
	    return err
	}

	customer := entity.New("Aamir Akhtar", "1").
	    With("Email", "aamir@contoso.com").
	    With("PhoneNumber", "425-555-0101")
	if _, err := table.UpsertMerge(ctx, customer); err != nil {
	    return err
	}

	// Hand out read-only access for a day.
	token, err := table.AdHocSAS(sas.Query)
	if err != nil {
	    return err
	}

	// Elsewhere, without the account key:
	scoped, err := tablestore.OpenSAS(token.URI)
	if err != nil {
	    return err
	}
	_, err = scoped.UpsertMerge(ctx, customer) // errors.IsAuthorizationDenied(err) == true

For more information, see the documentation at https://github.com/suparena/tablestore
*/
package tablestore

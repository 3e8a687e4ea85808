/*
Package datastore defines the backend interfaces behind the tablestore client.

A Service creates, deletes and opens tables; a Table carries the entity and
access policy operations:

	type Table interface {
	    Upsert(ctx context.Context, e *entity.Entity, mode UpdateMode) (*entity.Entity, error)
	    Insert(ctx context.Context, e *entity.Entity) (*entity.Entity, error)
	    Update(ctx context.Context, e *entity.Entity, mode UpdateMode, etag string) (*entity.Entity, error)
	    Get(ctx context.Context, key entity.Key) (*entity.Entity, error)
	    Delete(ctx context.Context, key entity.Key, etag string) error
	    Query(ctx context.Context, params *storagemodels.QueryParams) ([]*entity.Entity, error)
	    Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*entity.Entity]
	    GetAccessPolicies(ctx context.Context) ([]sas.Policy, error)
	    SetAccessPolicies(ctx context.Context, policies []sas.Policy) error
	}

Implementations:
  - aztable: Azure Table storage and the local emulator through the aztables SDK
  - mock: in-memory service for tests, including SAS permission checks
  - logging: decorator adding structured logs and trace spans to any Table

Every implementation reports failures with the kinds in the errors package and
never retries on its own.
*/
package datastore

/*
Package registry maps Go types to table keys and entity types to decoders.

Index Map Registry:
Associates a Go type with PartitionKey and RowKey templates. Macros in braces
are replaced with the entity's property values:

	registry.RegisterIndexMap[Customer](map[string]string{
	    "PartitionKey": "{LastName}",
	    "RowKey":       "{FirstName}",
	})

Type Registry:
Maps EntityType values to decoders for tables holding several kinds of rows:

	registry.RegisterType("Customer", func(e *entity.Entity) (any, error) {
	    var c Customer
	    return &c, entity.ToStruct(e, &c)
	})

Both registries are safe for concurrent use and are normally populated during
initialization.
*/
package registry

/*
Package entity defines the table row model used across tablestore.

An Entity is a compound key (partition key + row key) plus a bag of typed
properties. The key is fixed when the entity is created; properties are set
with With and removed with Remove:

	customer := entity.New("1", "Aamir Akhtar").
	    With("Email", "aamiradvantage@gmail.com").
	    With("PhoneNumber", "425-555-0101")

Backends accept any Record, so callers may pass their own types as long as they
expose Key and Properties. FromStruct and ToStruct convert between entities and
plain structs carrying PartitionKey/RowKey json fields.

Supported property kinds are string, bool, int32, int64, float64, time.Time,
[]byte and uuid.UUID; other integer and float widths are normalized on write.
*/
package entity

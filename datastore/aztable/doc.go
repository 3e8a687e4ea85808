/*
Package aztable implements the datastore interfaces on Azure Table storage.

It works against a storage account or the local emulator through the aztables
SDK. The SDK's own retry policy is disabled so every failure reaches the
caller once, already translated by status code:

	403           AuthorizationDenied
	404           NotFound (PreconditionFailed for Delete and Update)
	409           AlreadyExists
	412           PreconditionFailed
	408, 429, 5xx TransportError (retryable)

A dial failure on EnsureTable is reported as ServiceUnavailable with a hint
when the account is the emulator.
*/
package aztable

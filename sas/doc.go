/*
Package sas issues and decodes shared access signatures for a single table.

A SAS is constrained in exactly one of two ways:

  - ad-hoc: start, expiry and permissions are embedded in the signed token and
    cannot be changed once issued;
  - stored policy: the token only names a policy saved on the table, so the
    policy can later be edited or deleted to change or revoke every token that
    references it.

Requests that set both, or neither, are rejected with an InvalidArgument error
before anything is signed.
*/
package sas

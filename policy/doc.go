/*
Package policy manages stored access policies on a table.

A stored policy gives a SAS its start, expiry and permissions by reference, so
editing or deleting the policy changes or revokes every token that names it.
The service keeps at most five policies per table and changes can take up to
thirty seconds to take effect; AwaitPropagation polls a caller supplied probe
across that window.
*/
package policy

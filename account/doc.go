/*
Package account resolves storage connection descriptors.

A descriptor is a semicolon separated list of Key=Value pairs:

	DefaultEndpointsProtocol=https;AccountName=myaccount;AccountKey=<base64>

or the emulator marker:

	UseDevelopmentStorage=true

Parse fails fast with a ConfigurationError; configuration problems are never
retried.
*/
package account

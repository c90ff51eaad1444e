// Package dedupe provides an idempotency cache: the first result for a key is
// remembered for a configurable window so repeated submits can be replayed.
package dedupe

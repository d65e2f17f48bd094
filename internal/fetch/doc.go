// Package fetch retrieves audio for cards with no stored content. Source
// fragments are canonicalized to bare video ids, downloads for the same id
// coalesce onto one in-flight task, and failures are held in a cooldown
// window so a stuck source cannot be retried in a tight loop.
package fetch

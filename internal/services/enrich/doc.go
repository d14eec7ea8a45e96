// Package enrich derives publish metadata for queue items from their source
// filenames and stores it as the item payload.
package enrich

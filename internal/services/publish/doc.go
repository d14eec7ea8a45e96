// Package publish moves processed items into the publish library and mints
// their external identifiers.
package publish

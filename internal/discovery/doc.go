// Package discovery enumerates candidate media files in the watch directory
// and computes the content fingerprints the pipeline dedups on.
package discovery

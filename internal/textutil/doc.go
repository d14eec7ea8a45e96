// Package textutil normalizes file names for library placement and raw
// strings into metadata tags.
package textutil

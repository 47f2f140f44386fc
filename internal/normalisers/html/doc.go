// Package html extracts readable text from HTML files. Scripts, styles and
// markup are dropped; paragraph-level elements end with a blank line so the
// chunker can split on them.
package html

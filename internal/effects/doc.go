// Package effects carries out the client-side half of a confirmed context
// action. The daemon answers some actions by asking the client to copy text,
// open a URL, or refresh a file's timestamps; Applier performs those requests
// on the local desktop.
package effects

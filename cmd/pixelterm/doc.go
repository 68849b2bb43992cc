// Package main hosts the PixelTerm CLI entrypoint and command graph.
//
// Invoked with a path on a terminal it opens the interactive viewer; with
// stdout redirected it prints the image once. Subcommands cover one-shot
// rendering, image metadata, environment checks, cache maintenance,
// position history and configuration scaffolding.
//
// Keep this package lean: behaviour lives in internal packages and is
// surfaced here through commands and flags.
package main

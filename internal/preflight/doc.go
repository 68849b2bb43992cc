// Package preflight provides readiness checks for the renderer binary and
// the filesystem paths PixelTerm writes to.
//
// The viewer calls CheckSystemDeps once at startup and refuses to start when
// the renderer is missing. The "pixelterm doctor" command runs RunAll and
// prints every result, including the renderer version.
package preflight

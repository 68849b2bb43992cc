// Package logs reads the viewer's log file for the `pixelterm logs`
// command: the last N lines, then optionally new lines as they are
// appended.
package logs

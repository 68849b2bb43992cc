// Package preload keeps the disk tier of the render cache warm around the
// current position.
//
// A Scheduler owns exactly one worker goroutine. Each navigation submits a
// Snapshot (paths, position, cache generation) and the worker renders every
// image in [pos-W, pos+W] that has no disk entry yet, pausing between
// renders. A newer snapshot supersedes the one being processed: the worker
// finishes the render in progress and then moves on to the newer job. A
// generation change (new directory) stops a job the same way.
//
// Jobs never fail. A render error is logged and the image is skipped; the
// display path renders it directly when it is needed.
package preload

// Package rendercache keeps rendered terminal output for the images around
// the current position so navigation does not wait on the renderer.
//
// # Tiers
//
// The memory tier holds only the current image and its immediate
// neighbours (index distance <= 1). Membership is a function of the
// position, recomputed by Rebalance; it is not an LRU.
//
// The disk tier holds one file per image inside a per-process session
// directory (<parent>/pixelterm-<uuid>). File names are the hex SHA-256 of
// the image path and contain the raw renderer output. Entries are written
// atomically, so a file is either absent or complete.
//
// # Generations
//
// Activate and InvalidateAll start a new generation. Background writers
// capture the generation when their job is scheduled and store through
// PutGeneration, which drops writes from an older generation. All tier
// mutation, including the disk I/O of a put, happens under one mutex, so a
// Get after InvalidateAll never observes an older entry.
//
// # Cleanup
//
// Close removes the session directory. Each session directory carries a
// flock'd .lock file; SweepOrphans removes directories whose lock is not
// held, which is what a crashed process leaves behind.
package rendercache

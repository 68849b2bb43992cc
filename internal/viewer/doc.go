// Package viewer owns one viewing session: the image index, the render
// cache, the preload scheduler and the renderer.
//
// All navigation methods must be called from a single goroutine (the
// foreground). Rendering is split in two so it can run elsewhere: Request
// captures the navigation state on the foreground and Render produces a
// Frame from it on any goroutine. Display does both in sequence.
//
// Default-size renders (scale 1.0) go through the cache and a
// singleflight group shared with the preload worker, so a foreground miss
// for an image the worker is already rendering waits for that render
// instead of starting a second subprocess. Zoomed renders bypass the cache.
package viewer

// Package events is the in-process content-event substrate.
//
// A Hub exposes one subscription point per content.EventKind. Publishing is
// synchronous: every subscriber runs on the publisher's goroutine, in
// registration order, and the publisher receives their joined errors. The
// content store raising an event therefore observes index mutation failures
// directly.
package events

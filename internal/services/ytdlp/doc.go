// Package ytdlp mediates access to the yt-dlp command used for discovery and
// acquisition.
//
// It owns the argument contract (detailed lookups, flat listings, primary and
// fallback downloads), bounds each invocation with a timeout, and converts
// failures into errors that carry the tool's stderr so callers can record a
// short diagnostic per item. Tests inject an Executor instead of spawning the
// real binary.
package ytdlp

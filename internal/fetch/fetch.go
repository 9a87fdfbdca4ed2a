// Package fetch is the download capability behind the worker loop. The
// Fetcher interface keeps protocol details (HTTP today, yt-dlp or m3u8
// assembly behind the same seam) out of ledger and scheduling code.
package fetch

import (
	"context"
	"time"

	"plenum/internal/manifest"
)

// Result describes one successful download.
type Result struct {
	// Path is where the content landed on disk.
	Path string
	// Bytes is the downloaded payload size.
	Bytes int64
	// Duration is wall-clock transfer time.
	Duration time.Duration
}

// Fetcher downloads one manifest row's content.
//
// Implementations classify failures with Transient/Permanent from this
// package; the worker loop uses that classification to decide whether an
// attempt consumes the item's retry budget pointlessly.
type Fetcher interface {
	Fetch(ctx context.Context, row manifest.Row) (*Result, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, row manifest.Row) (*Result, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, row manifest.Row) (*Result, error) {
	return f(ctx, row)
}

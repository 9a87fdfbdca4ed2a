package manifest

import (
	"fmt"
	"strings"
)

// Kind is the closed set of source modalities a manifest row may carry.
// Rows are resolved to a Kind once at load time; nothing downstream dispatches
// on raw modality strings.
type Kind int

const (
	KindVideo Kind = iota
	KindTranscript
	KindSubtitle
)

// ParseKind resolves a manifest column value to a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "video", "mp4", "m3u8":
		return KindVideo, nil
	case "transcript", "transcript_html", "transcript_text", "transcript_pdf", "transcript_doc":
		return KindTranscript, nil
	case "subtitle", "subtitles", "srt":
		return KindSubtitle, nil
	default:
		return 0, fmt.Errorf("unknown source kind %q", value)
	}
}

// String returns the canonical name used in the ledger and log lines.
func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindTranscript:
		return "transcript"
	case KindSubtitle:
		return "subtitle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Subdir returns the download subfolder for the kind, one folder per
// modality mirroring how sessions are laid out on disk.
func (k Kind) Subdir() string {
	return k.String()
}

// DefaultExt returns the fallback file extension when the source URL has none.
func (k Kind) DefaultExt() string {
	switch k {
	case KindVideo:
		return ".mp4"
	case KindTranscript:
		return ".html"
	case KindSubtitle:
		return ".srt"
	default:
		return ".bin"
	}
}

// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryLoad   Op = "load library"
	OpLibrarySave   Op = "save track to library"
	OpLibraryDelete Op = "delete track from library"
	OpLibraryClear  Op = "clear library"
	OpLibraryRetag  Op = "rename track"

	// Ingestion
	OpIngestFile Op = "ingest file"
	OpWatchInbox Op = "watch inbox folder"

	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackSelect Op = "select track"
	OpPlaybackSeek   Op = "seek"
	OpPlaybackResume Op = "resume last track"
	OpPlaybackSkip   Op = "change track"
	OpPlaybackMode   Op = "change playback settings"

	// Queue
	OpQueueEdit Op = "edit queue"
	OpQueueUndo Op = "undo queue edit"
	OpQueueRedo Op = "redo queue edit"

	// Audio graph
	OpGraphBuild Op = "build audio graph"
	OpEQSave     Op = "save equalizer"
	OpEQUpdate   Op = "update equalizer"

	// Metadata
	OpResolveTags    Op = "read embedded tags"
	OpResolveArtwork Op = "find artwork"
	OpResolveLyrics  Op = "fetch lyrics"

	// Session
	OpStateSave Op = "save playback state"
	OpMPRIS     Op = "start media session"
	OpRemote    Op = "serve remote control"
	OpRequest   Op = "read request"

	// Last.fm
	OpLastfmNowPlaying Op = "update Last.fm now playing"
	OpLastfmScrobble   Op = "scrobble to Last.fm"
	OpLastfmAuth       Op = "authenticate with Last.fm"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

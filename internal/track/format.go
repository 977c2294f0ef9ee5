package track

import (
	"path/filepath"
	"strings"
)

var hiResFormats = map[string]bool{
	"FLAC": true,
	"WAV":  true,
	"AIFF": true,
	"AIF":  true,
	"ALAC": true,
	"APE":  true,
	"WV":   true,
	"DSF":  true,
	"DFF":  true,
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
}

// NormalizeFormat upper-cases a format tag and drops a leading dot.
func NormalizeFormat(format string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

// FormatFromName derives the format tag from a filename extension.
func FormatFromName(name string) string {
	return NormalizeFormat(filepath.Ext(name))
}

// IsHiRes reports whether format is one of the lossless container tags.
func IsHiRes(format string) bool {
	return hiResFormats[NormalizeFormat(format)]
}

// Is24Bit uses the same set as IsHiRes. The label is informational only.
func Is24Bit(format string) bool {
	return IsHiRes(format)
}

// IsAudioFile reports whether name has a recognized audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsLyricsFile reports whether name is a companion lyrics file.
func IsLyricsFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lrc" || ext == ".txt"
}

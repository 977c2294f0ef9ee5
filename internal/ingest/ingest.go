// Package ingest turns dropped or imported files into tracks.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/tags"
	"github.com/llehouerou/ripple/internal/track"
)

// File is one input file. Name may carry a relative directory, which
// becomes the track's folder.
type File struct {
	Name string
	Data []byte
}

// Ingest converts the audio files among files into transient tracks.
//
// Ids come from track.NextID, so neither a batch nor two batches in the same
// millisecond collide. A lyrics file sharing an audio
// file's base name (case-insensitive, same folder) fills its Lyrics; other
// lyrics files and unknown files are ignored.
func Ingest(files []File, now time.Time) []track.Track {
	lyrics := make(map[string]string)
	for _, f := range files {
		if track.IsLyricsFile(f.Name) {
			lyrics[matchKey(f.Name)] = string(f.Data)
		}
	}

	var out []track.Track
	var total uint64
	for _, f := range files {
		if !track.IsAudioFile(f.Name) {
			if !track.IsLyricsFile(f.Name) {
				logger.Debug("ingest: skipping unsupported file", zap.String("name", f.Name))
			}
			continue
		}
		t := track.NewTransient(f.Name, f.Data, now)
		t.Folder = folderOf(f.Name)
		t.Lyrics = lyrics[matchKey(f.Name)]
		total += uint64(len(f.Data))

		if info, err := tags.ReadInfo(f.Data, t.Format); err == nil {
			logger.Debug("ingest: stream info",
				zap.String("title", t.Title),
				zap.Duration("duration", info.Duration),
				zap.Int("sample_rate", info.SampleRate),
				zap.Int("bit_depth", info.BitDepth))
		} else if !errors.Is(err, tags.ErrUnsupportedFormat) {
			logger.Warn("ingest: read stream info", zap.String("name", f.Name), zap.Error(err))
		}
		out = append(out, t)
	}

	if len(out) > 0 {
		logger.Info("ingested files",
			zap.Int("tracks", len(out)),
			zap.String("size", humanize.IBytes(total)))
	}
	return out
}

// FromPaths reads files from disk. Names keep the parent directory so the
// folder survives ingestion.
func FromPaths(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		name := filepath.Base(p)
		if dir := filepath.Base(filepath.Dir(p)); dir != "." && dir != string(filepath.Separator) {
			name = filepath.Join(dir, name)
		}
		files = append(files, File{Name: name, Data: data})
	}
	return files, nil
}

// Companions returns the lyrics files next to audio that share its base
// name, in any letter case.
func Companions(audioPath string) []string {
	dir := filepath.Dir(audioPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	key := matchKey(filepath.Base(audioPath))
	var out []string
	for _, e := range entries {
		if e.IsDir() || !track.IsLyricsFile(e.Name()) {
			continue
		}
		if matchKey(e.Name()) == key {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func matchKey(name string) string {
	name = filepath.ToSlash(name)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ToLower(base)
}

func folderOf(name string) string {
	dir := filepath.Dir(filepath.ToSlash(name))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

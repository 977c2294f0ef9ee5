package remote

import (
	"github.com/llehouerou/ripple/internal/accent"
	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/playback"
	"github.com/llehouerou/ripple/internal/track"
)

type stateDTO struct {
	Playing     bool        `json:"playing"`
	Volume      float64     `json:"volume"`
	Shuffle     bool        `json:"shuffle"`
	Repeat      bool        `json:"repeat"`
	Crossfading bool        `json:"crossfading"`
	PositionMs  int64       `json:"positionMs"`
	DurationMs  int64       `json:"durationMs"`
	Index       int         `json:"index"`
	Track       *trackDTO   `json:"track"`
	Metadata    metadataDTO `json:"metadata"`
}

type metadataDTO struct {
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	CoverURL      string `json:"coverUrl,omitempty"`
	Accent        string `json:"accent"`
	Lyrics        string `json:"lyrics,omitempty"`
	ArtworkSource string `json:"artworkSource,omitempty"`
	HiRes         bool   `json:"hiRes"`
	TwentyFourBit bool   `json:"twentyFourBit"`
}

type trackDTO struct {
	ID        float64 `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Format    string  `json:"format,omitempty"`
	Folder    string  `json:"folder,omitempty"`
	Transient bool    `json:"transient"`
}

type queueDTO struct {
	Queue       []trackDTO `json:"queue"`
	Index       int        `json:"index"`
	QueueActive bool       `json:"queueActive"`
}

type errorDTO struct {
	Error string `json:"error"`
}

// snapshot builds the state document sent by GET /api/state and /ws.
func snapshot(s playback.Service) stateDTO {
	st := s.State()
	out := stateDTO{
		Playing:     st.IsPlaying,
		Volume:      st.Volume,
		Shuffle:     st.IsShuffle,
		Repeat:      st.IsRepeat,
		Crossfading: st.IsCrossfading,
		PositionMs:  st.CurrentTime.Milliseconds(),
		DurationMs:  st.Duration.Milliseconds(),
		Index:       s.CurrentIndex(),
		Metadata:    toMetadata(s.Metadata()),
	}
	if cur := s.Current(); cur != nil {
		t := toTrack(*cur)
		out.Track = &t
	}
	return out
}

// toMetadata drops blob covers; they only resolve inside the process.
func toMetadata(m playback.Metadata) metadataDTO {
	out := metadataDTO{
		Title:         m.Title,
		Artist:        m.Artist,
		Accent:        accent.Hex(m.Accent),
		Lyrics:        m.Lyrics,
		ArtworkSource: m.ArtworkSource,
		HiRes:         m.HiRes,
		TwentyFourBit: m.TwentyFourBit,
	}
	if !blob.IsBlob(m.CoverURL) {
		out.CoverURL = m.CoverURL
	}
	return out
}

func toTrack(t track.Track) trackDTO {
	return trackDTO{
		ID:        t.ID,
		Title:     t.Title,
		Artist:    t.Artist,
		Format:    t.Format,
		Folder:    t.Folder,
		Transient: t.Transient,
	}
}

func toTracks(tracks []track.Track) []trackDTO {
	out := make([]trackDTO, len(tracks))
	for i := range tracks {
		out[i] = toTrack(tracks[i])
	}
	return out
}

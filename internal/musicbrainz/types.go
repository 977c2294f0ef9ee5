// Package musicbrainz provides a client for the MusicBrainz API and the
// Cover Art Archive.
package musicbrainz

// Release represents a MusicBrainz release (album).
type Release struct {
	ID          string
	Title       string
	Artist      string // Extracted from artist-credit
	Date        string
	Country     string
	Score       int    // Search relevance score (0-100)
	ReleaseType string // album, single, ep, etc.
}

// searchResponse is the raw response from MusicBrainz release search.
type searchResponse struct {
	Releases []releaseResult `json:"releases"`
}

// releaseResult is a single release from search results.
type releaseResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	ReleaseGroup *releaseGroup  `json:"release-group"`
}

// artistCredit represents an artist contribution.
type artistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
	JoinPhrase string `json:"joinphrase"`
}

// releaseGroup contains release type info.
type releaseGroup struct {
	ID          string `json:"id"`
	PrimaryType string `json:"primary-type"`
}

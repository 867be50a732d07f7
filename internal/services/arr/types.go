package arr

// MediaType identifies which catalog backend a client talks to.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
	MediaTypeMusic  MediaType = "music"
)

// SearchResult is one normalized lookup hit. External ids are kept as
// strings because the music backend uses opaque identifiers where the
// movie and series backends use numbers.
type SearchResult struct {
	ExternalID string
	Title      string
	Year       int
	Poster     string
	// SeasonCount is set for series, AlbumCount for music; zero
	// otherwise.
	SeasonCount int
	AlbumCount  int
}

// RootFolder is a backend-configured base path for new media.
type RootFolder struct {
	Path      string `json:"path"`
	FreeSpace int64  `json:"freeSpace"`
}

// QualityProfile is a backend-configured release quality ruleset.
type QualityProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is a backend label attachable to library entries.
type Tag struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Season is one season of a series with its monitored flag.
type Season struct {
	SeasonNumber int  `json:"seasonNumber"`
	Monitored    bool `json:"monitored"`
}

// LibraryItem is one entry of the backend's current library, as shown
// by the listing commands.
type LibraryItem struct {
	Title     string
	Year      int
	Status    string
	Monitored bool
}

// AddRequest carries everything the add call needs beyond the id.
type AddRequest struct {
	ExternalID       string
	Path             string
	QualityProfileID int64
	TagIDs           []int64
	// Seasons is only consulted for series.
	Seasons []Season
}

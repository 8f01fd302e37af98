package tmdb

// Page is the envelope of every TMDB list endpoint.
type Page[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}

type SearchMovieResponse = Page[MovieResult]

type SearchTVResponse = Page[TVResult]

type MovieResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
}

type TVResult struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
}

type MovieDetails struct {
	ID           int            `json:"id"`
	IMDbID       string         `json:"imdb_id"`
	Title        string         `json:"title"`
	Overview     string         `json:"overview"`
	PosterPath   string         `json:"poster_path"`
	BackdropPath string         `json:"backdrop_path"`
	ReleaseDate  string         `json:"release_date"`
	Runtime      int            `json:"runtime"`
	Status       string         `json:"status"`
	Genres       []Genre        `json:"genres"`
	VoteAverage  float64        `json:"vote_average"`
	Credits      Credits        `json:"credits"`
	Videos       VideosResponse `json:"videos"`
}

type TVDetails struct {
	ID               int            `json:"id"`
	Name             string         `json:"name"`
	Overview         string         `json:"overview"`
	PosterPath       string         `json:"poster_path"`
	BackdropPath     string         `json:"backdrop_path"`
	FirstAirDate     string         `json:"first_air_date"`
	LastAirDate      string         `json:"last_air_date"`
	Status           string         `json:"status"`
	Genres           []Genre        `json:"genres"`
	NumberOfSeasons  int            `json:"number_of_seasons"`
	NumberOfEpisodes int            `json:"number_of_episodes"`
	VoteAverage      float64        `json:"vote_average"`
	Seasons          []Season       `json:"seasons"`
	Credits          Credits        `json:"credits"`
	Videos           VideosResponse `json:"videos"`
}

type SeasonDetails struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	SeasonNumber int       `json:"season_number"`
	AirDate      string    `json:"air_date"`
	Overview     string    `json:"overview"`
	PosterPath   string    `json:"poster_path"`
	Episodes     []Episode `json:"episodes"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Season struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	PosterPath   string `json:"poster_path"`
}

type Episode struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	AirDate       string  `json:"air_date"`
	StillPath     string  `json:"still_path"`
	Overview      string  `json:"overview"`
	VoteAverage   float64 `json:"vote_average"`
}

type Credits struct {
	Cast []Cast `json:"cast"`
}

type Cast struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	ProfilePath string `json:"profile_path"`
}

type VideosResponse struct {
	Results []Video `json:"results"`
}

type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// Trailer returns the first official YouTube trailer, if any.
func (v VideosResponse) Trailer() (Video, bool) {
	for _, vid := range v.Results {
		if vid.Site == "YouTube" && vid.Type == "Trailer" && vid.Official {
			return vid, true
		}
	}
	for _, vid := range v.Results {
		if vid.Site == "YouTube" && vid.Type == "Trailer" {
			return vid, true
		}
	}
	return Video{}, false
}

package domain

// Category names one of the curated home-page lists.
type Category string

const (
	CategoryPopular    Category = "popular"
	CategoryTopRated   Category = "top_rated"
	CategoryNowPlaying Category = "now_playing"
	CategoryUpcoming   Category = "upcoming"
)

// HomeCategories lists the categories shown on the home view, in display order.
var HomeCategories = []Category{
	CategoryPopular,
	CategoryTopRated,
	CategoryNowPlaying,
	CategoryUpcoming,
}

// Valid reports whether c is one of the home categories.
func (c Category) Valid() bool {
	for _, known := range HomeCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Movie is the catalog entry as delivered by the metadata API.
type Movie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title,omitempty"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path,omitempty"`
	BackdropPath  string  `json:"backdrop_path,omitempty"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids,omitempty"`
}

// MoviePage is one page of a paged listing.
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Genre maps a genre id to its display name.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is a credited actor.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// CrewMember is a credited crew member.
type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// Credits groups cast and crew.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Video is a trailer, teaser or clip hosted on an external site.
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// MovieDetails is a Movie with the embedded credits, videos and similar titles.
type MovieDetails struct {
	Movie
	Runtime int       `json:"runtime"`
	Tagline string    `json:"tagline,omitempty"`
	Status  string    `json:"status,omitempty"`
	Genres  []Genre   `json:"genres"`
	Credits Credits   `json:"credits"`
	Videos  []Video   `json:"videos"`
	Similar MoviePage `json:"similar"`
}

// Directors returns the names of crew members credited as director.
func (d MovieDetails) Directors() []string {
	var names []string
	for _, member := range d.Credits.Crew {
		if member.Job == "Director" {
			names = append(names, member.Name)
		}
	}
	return names
}

// Trailer returns the first YouTube trailer, preferring official ones.
func (d MovieDetails) Trailer() (Video, bool) {
	var fallback *Video
	for i := range d.Videos {
		v := d.Videos[i]
		if v.Site != "YouTube" || v.Type != "Trailer" {
			continue
		}
		if v.Official {
			return v, true
		}
		if fallback == nil {
			fallback = &d.Videos[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Video{}, false
}

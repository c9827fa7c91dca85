package tmdb

import "github.com/Clark-Hu/movie-discovery/internal/domain"

type errorPayload struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

type genresPayload struct {
	Genres []domain.Genre `json:"genres"`
}

type detailsPayload struct {
	domain.Movie
	Runtime int              `json:"runtime"`
	Tagline string           `json:"tagline"`
	Status  string           `json:"status"`
	Genres  []domain.Genre   `json:"genres"`
	Credits domain.Credits   `json:"credits"`
	Videos  videosPayload    `json:"videos"`
	Similar domain.MoviePage `json:"similar"`
}

type videosPayload struct {
	Results []domain.Video `json:"results"`
}

func normalizePage(p domain.MoviePage) domain.MoviePage {
	if p.Results == nil {
		p.Results = []domain.Movie{}
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

// convertDetails flattens the appended sub-resources. The details endpoint reports genres
// as objects, so GenreIDs is rebuilt from them.
func convertDetails(p detailsPayload) domain.MovieDetails {
	details := domain.MovieDetails{
		Movie:   p.Movie,
		Runtime: p.Runtime,
		Tagline: p.Tagline,
		Status:  p.Status,
		Genres:  p.Genres,
		Credits: p.Credits,
		Videos:  p.Videos.Results,
		Similar: normalizePage(p.Similar),
	}
	if details.Genres == nil {
		details.Genres = []domain.Genre{}
	}
	if details.Videos == nil {
		details.Videos = []domain.Video{}
	}
	if details.Credits.Cast == nil {
		details.Credits.Cast = []domain.CastMember{}
	}
	if details.Credits.Crew == nil {
		details.Credits.Crew = []domain.CrewMember{}
	}
	if len(details.GenreIDs) == 0 && len(details.Genres) > 0 {
		ids := make([]int, 0, len(details.Genres))
		for _, g := range details.Genres {
			ids = append(ids, g.ID)
		}
		details.GenreIDs = ids
	}
	return details
}

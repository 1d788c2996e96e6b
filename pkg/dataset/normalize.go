package dataset

import (
	"fmt"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/goccy/go-json"
)

// NormalizationError means a record could not be turned into a Row. ID is 0
// when the record had none.
type NormalizationError struct {
	ID     int
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.ID == 0 {
		return "normalize: " + e.Reason
	}
	return fmt.Sprintf("normalize record %d: %s", e.ID, e.Reason)
}

// Normalize flattens a media record. Scalars are copied, single nested
// objects become parent_child columns and lists become canonical JSON.
// An absent list is null; a present empty list is "[]".
func Normalize(m anilist.Media) (Row, error) {
	if m.ID == nil {
		return Row{}, &NormalizationError{Reason: "record has no id"}
	}

	r := Row{
		ID:              m.ID,
		IDMal:           m.IDMal,
		Type:            m.Type,
		Format:          m.Format,
		Status:          m.Status,
		Description:     m.Description,
		Season:          m.Season,
		SeasonYear:      m.SeasonYear,
		SeasonInt:       m.SeasonInt,
		Episodes:        m.Episodes,
		Duration:        m.Duration,
		Chapters:        m.Chapters,
		Volumes:         m.Volumes,
		CountryOfOrigin: m.CountryOfOrigin,
		IsLicensed:      m.IsLicensed,
		Source:          m.Source,
		Hashtag:         m.Hashtag,
		UpdatedAt:       m.UpdatedAt,
		BannerImage:     m.BannerImage,
		AverageScore:    m.AverageScore,
		MeanScore:       m.MeanScore,
		Popularity:      m.Popularity,
		Favourites:      m.Favourites,
		Trending:        m.Trending,
		IsFavourite:     m.IsFavourite,
		IsAdult:         m.IsAdult,
		IsLocked:        m.IsLocked,
		SiteURL:         m.SiteURL,
	}

	if t := m.Title; t != nil {
		r.TitleRomaji, r.TitleEnglish, r.TitleNative, r.TitleUserPreferred = t.Romaji, t.English, t.Native, t.UserPreferred
	}
	if d := m.StartDate; d != nil {
		r.StartDateYear, r.StartDateMonth, r.StartDateDay = d.Year, d.Month, d.Day
	}
	if d := m.EndDate; d != nil {
		r.EndDateYear, r.EndDateMonth, r.EndDateDay = d.Year, d.Month, d.Day
	}
	if t := m.Trailer; t != nil {
		r.TrailerID, r.TrailerSite, r.TrailerThumbnail = t.ID, t.Site, t.Thumbnail
	}
	if c := m.CoverImage; c != nil {
		r.CoverExtraLarge, r.CoverLarge, r.CoverMedium, r.CoverColor = c.ExtraLarge, c.Large, c.Medium, c.Color
	}
	if n := m.NextAiringEpisode; n != nil {
		r.NextAiringID, r.NextAiringAt, r.NextAiringUntil, r.NextAiringEpisode, r.NextAiringMediaID = n.ID, n.AiringAt, n.TimeUntilAiring, n.Episode, n.MediaID
	}

	enc := encoder{}
	r.Genres = enc.list(m.Genres, m.Genres != nil)
	r.Synonyms = enc.list(m.Synonyms, m.Synonyms != nil)
	r.Tags = enc.list(m.Tags, m.Tags != nil)
	r.Rankings = enc.list(m.Rankings, m.Rankings != nil)
	r.ExternalLinks = enc.list(m.ExternalLinks, m.ExternalLinks != nil)
	r.StreamingEpisodes = enc.list(m.StreamingEpisodes, m.StreamingEpisodes != nil)
	if m.Relations != nil {
		r.Relations = enc.list(m.Relations.Edges, m.Relations.Edges != nil)
	}
	if m.Characters != nil {
		r.Characters = enc.list(m.Characters.Edges, m.Characters.Edges != nil)
	}
	if m.Staff != nil {
		r.Staff = enc.list(m.Staff.Edges, m.Staff.Edges != nil)
	}
	if m.Studios != nil {
		r.Studios = enc.list(m.Studios.Edges, m.Studios.Edges != nil)
	}
	if m.AiringSchedule != nil {
		r.AiringSchedule = enc.list(m.AiringSchedule.Nodes, m.AiringSchedule.Nodes != nil)
	}
	if m.Recommendations != nil {
		r.Recommendations = enc.list(m.Recommendations.Edges, m.Recommendations.Edges != nil)
	}
	if m.Reviews != nil {
		r.Reviews = enc.list(m.Reviews.Edges, m.Reviews.Edges != nil)
	}
	if s := m.Stats; s != nil {
		r.ScoreDistribution = enc.list(s.ScoreDistribution, s.ScoreDistribution != nil)
		r.StatusDistribution = enc.list(s.StatusDistribution, s.StatusDistribution != nil)
	}

	if enc.err != nil {
		return Row{}, &NormalizationError{ID: *m.ID, Reason: enc.err.Error()}
	}
	return r, nil
}

// encoder keeps the first marshal error so Normalize can check once.
type encoder struct {
	err error
}

func (e *encoder) list(v any, present bool) *string {
	if !present || e.err != nil {
		return nil
	}
	// No HTML escaping: descriptions and notes keep their markup verbatim.
	b, err := json.MarshalNoEscape(v)
	if err != nil {
		e.err = err
		return nil
	}
	s := string(b)
	return &s
}

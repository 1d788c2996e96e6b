package dataset

import (
	"reflect"
)

// Row is the flat projection of one media record. Field order is column
// order; a nil field is a null cell. JSON columns hold canonical JSON text.
type Row struct {
	ID                 *int    `col:"id"`
	IDMal              *int    `col:"idMal"`
	TitleRomaji        *string `col:"title_romaji"`
	TitleEnglish       *string `col:"title_english"`
	TitleNative        *string `col:"title_native"`
	TitleUserPreferred *string `col:"title_userPreferred"`
	Type               *string `col:"type"`
	Format             *string `col:"format"`
	Status             *string `col:"status"`
	Description        *string `col:"description"`
	StartDateYear      *int    `col:"startDate_year"`
	StartDateMonth     *int    `col:"startDate_month"`
	StartDateDay       *int    `col:"startDate_day"`
	EndDateYear        *int    `col:"endDate_year"`
	EndDateMonth       *int    `col:"endDate_month"`
	EndDateDay         *int    `col:"endDate_day"`
	Season             *string `col:"season"`
	SeasonYear         *int    `col:"seasonYear"`
	SeasonInt          *int    `col:"seasonInt"`
	Episodes           *int    `col:"episodes"`
	Duration           *int    `col:"duration"`
	Chapters           *int    `col:"chapters"`
	Volumes            *int    `col:"volumes"`
	CountryOfOrigin    *string `col:"countryOfOrigin"`
	IsLicensed         *bool   `col:"isLicensed"`
	Source             *string `col:"source"`
	Hashtag            *string `col:"hashtag"`
	TrailerID          *string `col:"trailer_id"`
	TrailerSite        *string `col:"trailer_site"`
	TrailerThumbnail   *string `col:"trailer_thumbnail"`
	UpdatedAt          *int64  `col:"updatedAt"`
	CoverExtraLarge    *string `col:"coverImage_extraLarge"`
	CoverLarge         *string `col:"coverImage_large"`
	CoverMedium        *string `col:"coverImage_medium"`
	CoverColor         *string `col:"coverImage_color"`
	BannerImage        *string `col:"bannerImage"`
	Genres             *string `col:"genres"`
	Synonyms           *string `col:"synonyms"`
	Tags               *string `col:"tags"`
	AverageScore       *int    `col:"averageScore"`
	MeanScore          *int    `col:"meanScore"`
	Popularity         *int    `col:"popularity"`
	Favourites         *int    `col:"favourites"`
	Trending           *int    `col:"trending"`
	Rankings           *string `col:"rankings"`
	IsFavourite        *bool   `col:"isFavourite"`
	IsAdult            *bool   `col:"isAdult"`
	IsLocked           *bool   `col:"isLocked"`
	SiteURL            *string `col:"siteUrl"`
	ExternalLinks      *string `col:"externalLinks"`
	StreamingEpisodes  *string `col:"streamingEpisodes"`
	Relations          *string `col:"relations"`
	Characters         *string `col:"characters"`
	Staff              *string `col:"staff"`
	Studios            *string `col:"studios"`
	NextAiringID       *int    `col:"nextAiringEpisode_id"`
	NextAiringAt       *int64  `col:"nextAiringEpisode_airingAt"`
	NextAiringUntil    *int64  `col:"nextAiringEpisode_timeUntilAiring"`
	NextAiringEpisode  *int    `col:"nextAiringEpisode_episode"`
	NextAiringMediaID  *int    `col:"nextAiringEpisode_mediaId"`
	AiringSchedule     *string `col:"airingSchedule"`
	Recommendations    *string `col:"recommendations"`
	Reviews            *string `col:"reviews"`
	ScoreDistribution  *string `col:"stats_scoreDistribution"`
	StatusDistribution *string `col:"stats_statusDistribution"`
}

var columns = func() []string {
	t := reflect.TypeOf(Row{})
	out := make([]string, t.NumField())
	for i := range out {
		out[i] = t.Field(i).Tag.Get("col")
	}
	return out
}()

// Columns returns the fixed column order shared by every encoding.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Values returns the row cells in column order. Null cells are nil; the rest
// are int, int64, string or bool.
func (r Row) Values() []any {
	v := reflect.ValueOf(r)
	out := make([]any, v.NumField())
	for i := range out {
		f := v.Field(i)
		if f.IsNil() {
			continue
		}
		out[i] = f.Elem().Interface()
	}
	return out
}

// Key returns the record id, if set.
func (r Row) Key() (int, bool) {
	if r.ID == nil {
		return 0, false
	}
	return *r.ID, true
}

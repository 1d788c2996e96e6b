package dataset

import (
	"errors"
	"reflect"
	"testing"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/goccy/go-json"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }
func int64p(v int64) *int64 { return &v }

const fullRecord = `{
	"id": 1,
	"idMal": 1,
	"title": {"romaji": "Cowboy Bebop", "english": "Cowboy Bebop", "native": "カウボーイビバップ", "userPreferred": "Cowboy Bebop"},
	"type": "ANIME",
	"format": "TV",
	"status": "FINISHED",
	"description": "In the year 2071, <i>humanity</i> & friends.",
	"startDate": {"year": 1998, "month": 4, "day": 3},
	"endDate": {"year": 1999, "month": 4, "day": 24},
	"season": "SPRING",
	"seasonYear": 1998,
	"episodes": 26,
	"duration": 24,
	"isLicensed": true,
	"trailer": {"id": "abc", "site": "youtube", "thumbnail": "https://i.ytimg.com/x.jpg"},
	"updatedAt": 1718000000,
	"coverImage": {"extraLarge": "xl", "large": "l", "medium": "m", "color": "#f1785d"},
	"genres": ["Action", "Sci-Fi"],
	"synonyms": [],
	"tags": [{"id": 63, "name": "Space", "rank": 94, "isAdult": false}],
	"averageScore": 86,
	"isAdult": false,
	"siteUrl": "https://anilist.co/anime/1",
	"studios": {"edges": [{"id": 9, "isMain": true, "node": {"id": 14, "name": "Sunrise", "isAnimationStudio": true}}]},
	"nextAiringEpisode": null,
	"stats": {"scoreDistribution": [{"score": 100, "amount": 5}], "statusDistribution": null}
}`

func decode(t *testing.T, raw string) anilist.Media {
	t.Helper()
	var m anilist.Media
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestNormalizeFullRecord(t *testing.T) {
	r, err := Normalize(decode(t, fullRecord))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"id", *r.ID, 1},
		{"title_native", *r.TitleNative, "カウボーイビバップ"},
		{"startDate_month", *r.StartDateMonth, 4},
		{"endDate_year", *r.EndDateYear, 1999},
		{"trailer_site", *r.TrailerSite, "youtube"},
		{"coverImage_color", *r.CoverColor, "#f1785d"},
		{"updatedAt", *r.UpdatedAt, int64(1718000000)},
		{"description", *r.Description, "In the year 2071, <i>humanity</i> & friends."},
		{"genres", *r.Genres, `["Action","Sci-Fi"]`},
		{"synonyms", *r.Synonyms, `[]`},
		{"tags", *r.Tags, `[{"id":63,"name":"Space","description":null,"category":null,"rank":94,"isGeneralSpoiler":null,"isMediaSpoiler":null,"isAdult":false}]`},
		{"studios", *r.Studios, `[{"id":9,"isMain":true,"node":{"id":14,"name":"Sunrise","isAnimationStudio":true}}]`},
		{"stats_scoreDistribution", *r.ScoreDistribution, `[{"score":100,"amount":5}]`},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s = %#v, want %#v", c.name, c.got, c.want)
		}
	}

	nulls := map[string]any{
		"seasonInt":                 r.SeasonInt,
		"chapters":                  r.Chapters,
		"rankings":                  r.Rankings,
		"relations":                 r.Relations,
		"nextAiringEpisode_id":      r.NextAiringID,
		"nextAiringEpisode_mediaId": r.NextAiringMediaID,
		"stats_statusDistribution":  r.StatusDistribution,
	}
	for name, v := range nulls {
		if !reflect.ValueOf(v).IsNil() {
			t.Errorf("%s should be null", name)
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	m := decode(t, fullRecord)
	first, err := Normalize(m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := Normalize(decode(t, fullRecord))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Values(), again.Values()) {
			t.Fatalf("run %d produced a different row", i)
		}
	}
}

func TestNormalizeMissingNestedObjects(t *testing.T) {
	r, err := Normalize(anilist.Media{ID: intp(42)})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	values := r.Values()
	cols := Columns()
	for i, v := range values {
		if cols[i] == "id" {
			if v != 42 {
				t.Fatalf("id = %v", v)
			}
			continue
		}
		if v != nil {
			t.Errorf("column %s = %v, want null", cols[i], v)
		}
	}
}

func TestNormalizeEmptyVersusAbsentLists(t *testing.T) {
	m := anilist.Media{
		ID:         intp(3),
		Genres:     []string{},
		Relations:  &anilist.RelationConnection{Edges: []anilist.RelationEdge{}},
		Characters: &anilist.CharacterConnection{},
		Stats:      &anilist.MediaStats{StatusDistribution: []anilist.StatusDistribution{}},
	}
	r, err := Normalize(m)
	if err != nil {
		t.Fatal(err)
	}
	if r.Genres == nil || *r.Genres != "[]" {
		t.Errorf("empty genres should be [] got %v", r.Genres)
	}
	if r.Relations == nil || *r.Relations != "[]" {
		t.Errorf("empty relations should be []")
	}
	if r.Characters != nil {
		t.Errorf("connection without edges should be null")
	}
	if r.Synonyms != nil || r.ScoreDistribution != nil {
		t.Errorf("absent lists should be null")
	}
	if r.StatusDistribution == nil || *r.StatusDistribution != "[]" {
		t.Errorf("empty status distribution should be []")
	}
}

func TestNormalizeNextAiringEpisode(t *testing.T) {
	m := anilist.Media{
		ID: intp(5),
		NextAiringEpisode: &anilist.AiringEpisode{
			ID:              intp(900),
			AiringAt:        int64p(1760000000),
			TimeUntilAiring: int64p(3600),
			Episode:         intp(12),
			MediaID:         intp(5),
		},
		IsLocked: boolp(false),
		Hashtag:  strp("#anime"),
	}
	r, err := Normalize(m)
	if err != nil {
		t.Fatal(err)
	}
	if *r.NextAiringID != 900 || *r.NextAiringAt != 1760000000 || *r.NextAiringUntil != 3600 || *r.NextAiringEpisode != 12 || *r.NextAiringMediaID != 5 {
		t.Fatalf("unexpected airing columns: %+v", r)
	}
	if *r.IsLocked != false || *r.Hashtag != "#anime" {
		t.Fatalf("scalars not copied")
	}
}

func TestNormalizeRequiresID(t *testing.T) {
	_, err := Normalize(anilist.Media{Title: &anilist.MediaTitle{Romaji: strp("x")}})
	var ne *NormalizationError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}

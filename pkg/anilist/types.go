package anilist

// Every field of a media record is optional: AniList returns null for
// unknown values and omits fields it has no data for. Pointers and nil
// slices keep "absent" distinguishable from zero values. JSON tags match the
// GraphQL field names so the same structs serve decoding and re-encoding.

type FuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type MediaTitle struct {
	Romaji        *string `json:"romaji"`
	English       *string `json:"english"`
	Native        *string `json:"native"`
	UserPreferred *string `json:"userPreferred"`
}

// ShortTitle is the title subset requested for related and recommended media.
type ShortTitle struct {
	Romaji  *string `json:"romaji"`
	English *string `json:"english"`
	Native  *string `json:"native"`
}

type Trailer struct {
	ID        *string `json:"id"`
	Site      *string `json:"site"`
	Thumbnail *string `json:"thumbnail"`
}

type CoverImage struct {
	ExtraLarge *string `json:"extraLarge"`
	Large      *string `json:"large"`
	Medium     *string `json:"medium"`
	Color      *string `json:"color"`
}

type Image struct {
	Large  *string `json:"large"`
	Medium *string `json:"medium"`
}

type MediaTag struct {
	ID               *int    `json:"id"`
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Category         *string `json:"category"`
	Rank             *int    `json:"rank"`
	IsGeneralSpoiler *bool   `json:"isGeneralSpoiler"`
	IsMediaSpoiler   *bool   `json:"isMediaSpoiler"`
	IsAdult          *bool   `json:"isAdult"`
}

type MediaRank struct {
	ID      *int    `json:"id"`
	Rank    *int    `json:"rank"`
	Type    *string `json:"type"`
	Format  *string `json:"format"`
	Year    *int    `json:"year"`
	Season  *string `json:"season"`
	AllTime *bool   `json:"allTime"`
	Context *string `json:"context"`
}

type ExternalLink struct {
	ID         *int    `json:"id"`
	URL        *string `json:"url"`
	Site       *string `json:"site"`
	Type       *string `json:"type"`
	Language   *string `json:"language"`
	Color      *string `json:"color"`
	Icon       *string `json:"icon"`
	Notes      *string `json:"notes"`
	IsDisabled *bool   `json:"isDisabled"`
}

type StreamingEpisode struct {
	Title     *string `json:"title"`
	Thumbnail *string `json:"thumbnail"`
	URL       *string `json:"url"`
	Site      *string `json:"site"`
}

type RelatedMedia struct {
	ID     *int        `json:"id"`
	Title  *ShortTitle `json:"title"`
	Type   *string     `json:"type"`
	Format *string     `json:"format"`
	Status *string     `json:"status"`
}

type RelationEdge struct {
	ID           *int          `json:"id"`
	RelationType *string       `json:"relationType"`
	Node         *RelatedMedia `json:"node"`
}

type RelationConnection struct {
	Edges []RelationEdge `json:"edges"`
}

type PersonName struct {
	Full   *string `json:"full"`
	Native *string `json:"native"`
}

type CharacterName struct {
	Full        *string  `json:"full"`
	Native      *string  `json:"native"`
	Alternative []string `json:"alternative"`
}

type Staff struct {
	ID         *int        `json:"id"`
	Name       *PersonName `json:"name"`
	LanguageV2 *string     `json:"languageV2"`
	Image      *Image      `json:"image"`
}

type Character struct {
	ID          *int           `json:"id"`
	Name        *CharacterName `json:"name"`
	Image       *Image         `json:"image"`
	Description *string        `json:"description"`
}

type CharacterEdge struct {
	ID          *int       `json:"id"`
	Role        *string    `json:"role"`
	Name        *string    `json:"name"`
	VoiceActors []Staff    `json:"voiceActors"`
	Node        *Character `json:"node"`
}

type CharacterConnection struct {
	Edges []CharacterEdge `json:"edges"`
}

type StaffEdge struct {
	ID   *int    `json:"id"`
	Role *string `json:"role"`
	Node *Staff  `json:"node"`
}

type StaffConnection struct {
	Edges []StaffEdge `json:"edges"`
}

type Studio struct {
	ID                *int    `json:"id"`
	Name              *string `json:"name"`
	IsAnimationStudio *bool   `json:"isAnimationStudio"`
}

type StudioEdge struct {
	ID     *int    `json:"id"`
	IsMain *bool   `json:"isMain"`
	Node   *Studio `json:"node"`
}

type StudioConnection struct {
	Edges []StudioEdge `json:"edges"`
}

type AiringEpisode struct {
	ID              *int   `json:"id"`
	AiringAt        *int64 `json:"airingAt"`
	TimeUntilAiring *int64 `json:"timeUntilAiring"`
	Episode         *int   `json:"episode"`
	MediaID         *int   `json:"mediaId"`
}

type AiringScheduleConnection struct {
	Nodes []AiringEpisode `json:"nodes"`
}

type RecommendedMedia struct {
	ID    *int        `json:"id"`
	Title *ShortTitle `json:"title"`
}

type Recommendation struct {
	ID                  *int              `json:"id"`
	Rating              *int              `json:"rating"`
	MediaRecommendation *RecommendedMedia `json:"mediaRecommendation"`
}

type RecommendationEdge struct {
	Node *Recommendation `json:"node"`
}

type RecommendationConnection struct {
	Edges []RecommendationEdge `json:"edges"`
}

type Review struct {
	ID      *int    `json:"id"`
	Summary *string `json:"summary"`
	Rating  *int    `json:"rating"`
	Score   *int    `json:"score"`
}

type ReviewEdge struct {
	Node *Review `json:"node"`
}

type ReviewConnection struct {
	Edges []ReviewEdge `json:"edges"`
}

type ScoreDistribution struct {
	Score  *int `json:"score"`
	Amount *int `json:"amount"`
}

type StatusDistribution struct {
	Status *string `json:"status"`
	Amount *int    `json:"amount"`
}

type MediaStats struct {
	ScoreDistribution  []ScoreDistribution  `json:"scoreDistribution"`
	StatusDistribution []StatusDistribution `json:"statusDistribution"`
}

// Media is one anime record as returned by the Page.media query.
type Media struct {
	ID              *int        `json:"id"`
	IDMal           *int        `json:"idMal"`
	Title           *MediaTitle `json:"title"`
	Type            *string     `json:"type"`
	Format          *string     `json:"format"`
	Status          *string     `json:"status"`
	Description     *string     `json:"description"`
	StartDate       *FuzzyDate  `json:"startDate"`
	EndDate         *FuzzyDate  `json:"endDate"`
	Season          *string     `json:"season"`
	SeasonYear      *int        `json:"seasonYear"`
	SeasonInt       *int        `json:"seasonInt"`
	Episodes        *int        `json:"episodes"`
	Duration        *int        `json:"duration"`
	Chapters        *int        `json:"chapters"`
	Volumes         *int        `json:"volumes"`
	CountryOfOrigin *string     `json:"countryOfOrigin"`
	IsLicensed      *bool       `json:"isLicensed"`
	Source          *string     `json:"source"`
	Hashtag         *string     `json:"hashtag"`
	Trailer         *Trailer    `json:"trailer"`
	UpdatedAt       *int64      `json:"updatedAt"`
	CoverImage      *CoverImage `json:"coverImage"`
	BannerImage     *string     `json:"bannerImage"`

	Genres   []string   `json:"genres"`
	Synonyms []string   `json:"synonyms"`
	Tags     []MediaTag `json:"tags"`

	AverageScore *int        `json:"averageScore"`
	MeanScore    *int        `json:"meanScore"`
	Popularity   *int        `json:"popularity"`
	Favourites   *int        `json:"favourites"`
	Trending     *int        `json:"trending"`
	Rankings     []MediaRank `json:"rankings"`

	IsFavourite *bool `json:"isFavourite"`
	IsAdult     *bool `json:"isAdult"`
	IsLocked    *bool `json:"isLocked"`

	SiteURL           *string            `json:"siteUrl"`
	ExternalLinks     []ExternalLink     `json:"externalLinks"`
	StreamingEpisodes []StreamingEpisode `json:"streamingEpisodes"`

	Relations         *RelationConnection       `json:"relations"`
	Characters        *CharacterConnection      `json:"characters"`
	Staff             *StaffConnection          `json:"staff"`
	Studios           *StudioConnection         `json:"studios"`
	NextAiringEpisode *AiringEpisode            `json:"nextAiringEpisode"`
	AiringSchedule    *AiringScheduleConnection `json:"airingSchedule"`
	Recommendations   *RecommendationConnection `json:"recommendations"`
	Reviews           *ReviewConnection         `json:"reviews"`
	Stats             *MediaStats               `json:"stats"`
}

type PageInfo struct {
	Total       *int `json:"total"`
	CurrentPage *int `json:"currentPage"`
	LastPage    *int `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     *int `json:"perPage"`
}

// InvalidRecord is a media item that could not be decoded into Media.
// ID is 0 when the raw item carried no usable id.
type InvalidRecord struct {
	ID  int
	Err error
}

// Page is one decoded Page response.
type Page struct {
	Info    PageInfo
	Media   []Media
	Invalid []InvalidRecord
}

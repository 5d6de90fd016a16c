package content

import "time"

type LoadStatus string

const (
	StatusLoading  LoadStatus = "loading"
	StatusReady    LoadStatus = "ready"
	StatusError    LoadStatus = "error"
	StatusSnapshot LoadStatus = "snapshot"
)

// Source records where the current document came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceAPI      Source = "api"
	SourceSnapshot Source = "snapshot"
	SourceCache    Source = "cache"
)

type Profile struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Location     string `json:"location"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Nationality  string `json:"nationality"`
	CurrentFocus string `json:"current_focus"`
	HeroImageURL string `json:"hero_image_url"`
	CVURL        string `json:"cv_url"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type TextBlock struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type BlogPost struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedOn string `json:"published_on"`
}

type Blogs struct {
	All      []BlogPost `json:"all"`
	News     []BlogPost `json:"news"`
	Articles []BlogPost `json:"articles"`
	Insights []BlogPost `json:"insights"`
}

type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type StoryItem struct {
	Year   string `json:"year"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type Experience struct {
	Role         string   `json:"role"`
	Organization string   `json:"organization"`
	Period       string   `json:"period"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Highlights   []string `json:"highlights,omitempty"`
}

type Education struct {
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

type Program struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Period       string `json:"period"`
}

type Publication struct {
	Title       string `json:"title"`
	Year        string `json:"year"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	DocumentURL string `json:"document_url"`
	ImageURL    string `json:"image_url"`
}

type Idea struct {
	Title       string `json:"title"`
	Stage       string `json:"stage"`
	Summary     string `json:"summary"`
	Impact      string `json:"impact"`
	URL         string `json:"url"`
	DocumentURL string `json:"document_url"`
	ImageURL    string `json:"image_url"`
}

type MediaAsset struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Caption   string `json:"caption"`
	FileURL   string `json:"file_url"`
	AssetType string `json:"asset_type"`
	Section   string `json:"section"`
}

type Media struct {
	All       []MediaAsset `json:"all"`
	Images    []MediaAsset `json:"images"`
	Documents []MediaAsset `json:"documents"`
	Home      []MediaAsset `json:"home"`
	Story     []MediaAsset `json:"story"`
	Work      []MediaAsset `json:"work"`
	Research  []MediaAsset `json:"research"`
	Library   []MediaAsset `json:"library"`
	General   []MediaAsset `json:"general"`
}

// Meta is stamped by the snapshot exporter.
type Meta struct {
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
}

// Document is the normalized profile payload every page renders from.
// Documents handed out by the loader are shared and must not be mutated.
type Document struct {
	Profile      Profile       `json:"profile"`
	Summary      string        `json:"summary"`
	ResumeText   string        `json:"resume_text"`
	PassionText  string        `json:"passion_text"`
	Resume       TextBlock     `json:"resume"`
	Passion      TextBlock     `json:"passion"`
	Blogs        Blogs         `json:"blogs"`
	ContactBlurb string        `json:"contact_blurb"`
	Stats        []Stat        `json:"stats"`
	Story        []StoryItem   `json:"story"`
	Experience   []Experience  `json:"experience"`
	Education    []Education   `json:"education"`
	Programs     []Program     `json:"programs"`
	Competencies []string      `json:"competencies"`
	Technical    []string      `json:"technical"`
	Languages    []string      `json:"languages"`
	Interests    []string      `json:"interests"`
	Publications []Publication `json:"publications"`
	Ideas        []Idea        `json:"ideas"`
	Media        Media         `json:"media"`
	Meta         *Meta         `json:"meta,omitempty"`
}

// EmptyData returns the default skeleton. Each call returns a fresh value.
func EmptyData() Document {
	doc := Document{
		Profile: Profile{Name: "Profile"},
	}
	doc.fillEmpty()
	return doc
}

func (d *Document) fillEmpty() {
	orEmpty(&d.Blogs.All)
	orEmpty(&d.Blogs.News)
	orEmpty(&d.Blogs.Articles)
	orEmpty(&d.Blogs.Insights)
	orEmpty(&d.Stats)
	orEmpty(&d.Story)
	orEmpty(&d.Experience)
	orEmpty(&d.Education)
	orEmpty(&d.Programs)
	orEmpty(&d.Competencies)
	orEmpty(&d.Technical)
	orEmpty(&d.Languages)
	orEmpty(&d.Interests)
	orEmpty(&d.Publications)
	orEmpty(&d.Ideas)
	orEmpty(&d.Media.All)
	orEmpty(&d.Media.Images)
	orEmpty(&d.Media.Documents)
	orEmpty(&d.Media.Home)
	orEmpty(&d.Media.Story)
	orEmpty(&d.Media.Work)
	orEmpty(&d.Media.Research)
	orEmpty(&d.Media.Library)
	orEmpty(&d.Media.General)
}

func orEmpty[T any](s *[]T) {
	if *s == nil {
		*s = []T{}
	}
}

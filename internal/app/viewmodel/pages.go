package viewmodel

import (
	"errors"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

// ErrUnknownPage is returned by Build for a page it has no shaper for.
var ErrUnknownPage = errors.New("viewmodel: unknown page")

// HomeCarouselSize is how many hot topics the home page features.
const HomeCarouselSize = 3

// Collection keys read from the payload. They match the content catalog.
const (
	keyResources      = "resources"
	keyHardware       = "hardware"
	keyMembers        = "members"
	keyFaculty        = "faculty"
	keyAlumni         = "alumni"
	keyEventSimple    = "eventSimple"
	keyEventDetailed  = "eventDetailed"
	keyUpcomingEvents = "upcomingEvents"
	keyHotTopics      = "hotTopics"
	keyProjects       = "projects"
	keyVideoDumps     = "videoDumps"
)

// Topic is a hot topic shaped for the pulse feed.
type Topic struct {
	Doc            models.Document `json:"doc"`
	Paragraphs     []string        `json:"paragraphs"`
	ReadingMinutes int             `json:"readingMinutes"`
	CoverImage     string          `json:"coverImage"`
}

// Video is one embeddable YouTube video.
type Video struct {
	YouTubeID string `json:"youtubeId"`
	Caption   string `json:"caption,omitempty"`
}

// Project is a club project with its embeddable videos resolved.
type Project struct {
	Doc    models.Document `json:"doc"`
	Videos []Video         `json:"videos"`
}

type HomePage struct {
	Featured []Topic `json:"featured"`
}

type AboutPage struct {
	Leadership []models.Document `json:"leadership"`
	Members    []models.Document `json:"members"`
	Alumni     []models.Document `json:"alumni"`
	Faculty    FacultyGroups     `json:"faculty"`
}

type EventsPage struct {
	Timeline []models.Document `json:"timeline"`
	Upcoming []models.Document `json:"upcoming"`
	Live     []models.Document `json:"live"`
}

type ResourcesPage struct {
	Categories []CategoryGroup   `json:"categories"`
	Hardware   []models.Document `json:"hardware"`
}

type ProjectsPage struct {
	Projects   []Project         `json:"projects"`
	VideoDumps []models.Document `json:"videoDumps"`
}

type PulsePage struct {
	Topics []Topic `json:"topics"`
}

// Build shapes the payload for one page.
func Build(page string, p map[string][]models.Document) (any, error) {
	switch page {
	case "home":
		return Home(p), nil
	case "about":
		return About(p), nil
	case "events":
		return Events(p), nil
	case "resources":
		return ResourcesView(p), nil
	case "projects":
		return Projects(p), nil
	case "pulse":
		return Pulse(p), nil
	}
	return nil, ErrUnknownPage
}

func Home(p map[string][]models.Document) HomePage {
	topics := Pulse(p).Topics
	if len(topics) > HomeCarouselSize {
		topics = topics[:HomeCarouselSize]
	}
	return HomePage{Featured: topics}
}

func About(p map[string][]models.Document) AboutPage {
	members := p[keyMembers]
	return AboutPage{
		Leadership: Leadership(members),
		Members:    GeneralMembers(members),
		Alumni:     SortAlumni(p[keyAlumni]),
		Faculty:    GroupFaculty(p[keyFaculty]),
	}
}

func Events(p map[string][]models.Document) EventsPage {
	upcoming := nonNil(p[keyUpcomingEvents])
	return EventsPage{
		Timeline: MergeTimeline(p[keyEventSimple], p[keyEventDetailed]),
		Upcoming: upcoming,
		Live:     UpcomingLive(upcoming),
	}
}

func ResourcesView(p map[string][]models.Document) ResourcesPage {
	return ResourcesPage{
		Categories: GroupByCategory(p[keyResources]),
		Hardware:   nonNil(p[keyHardware]),
	}
}

func Projects(p map[string][]models.Document) ProjectsPage {
	docs := p[keyProjects]
	out := make([]Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, Project{Doc: d, Videos: projectVideos(d)})
	}
	return ProjectsPage{Projects: out, VideoDumps: nonNil(p[keyVideoDumps])}
}

func Pulse(p map[string][]models.Document) PulsePage {
	sorted := SortTopics(p[keyHotTopics])
	out := make([]Topic, 0, len(sorted))
	for _, d := range sorted {
		summary := d.String("summary")
		out = append(out, Topic{
			Doc:            d,
			Paragraphs:     Paragraphs(summary),
			ReadingMinutes: ReadingTime(summary),
			CoverImage:     coverImage(d),
		})
	}
	return PulsePage{Topics: out}
}

// projectVideos keeps the videos with an extractable YouTube id.
func projectVideos(d models.Document) []Video {
	out := []Video{}
	list, _ := d["videos"].([]any)
	for _, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		vd := models.Document(obj)
		id, ok := YouTubeID(vd.String("url"))
		if !ok {
			continue
		}
		caption := vd.String("caption")
		if caption == "" {
			caption = d.String("title")
		}
		out = append(out, Video{YouTubeID: id, Caption: caption})
	}
	return out
}

// coverImage is the first resolved image in a topic's imagery.
func coverImage(d models.Document) string {
	list, _ := d["imagery"].([]any)
	for _, v := range list {
		if obj, ok := v.(map[string]any); ok {
			if u := models.Document(obj).Object("image").String("url"); u != "" {
				return u
			}
		}
	}
	return PlaceholderImage
}

func nonNil(d []models.Document) []models.Document {
	if d == nil {
		return []models.Document{}
	}
	return d
}

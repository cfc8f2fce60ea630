package content

import "github.com/dalemusser/vlsiclub/internal/domain/models"

// Collection is one hand-written query in the aggregation catalog.
//
// Assets lists the asset paths the query resolves to {url} objects:
// "image" is an object field, "images[]" an array of asset objects, and
// "imagery[].image" an object field inside each array element. After
// decoding, any listed asset that did not resolve to a url is removed.
type Collection struct {
	Name   string
	Query  string
	Assets []string
	Kind   string // set as the "kind" field on every document, when non-empty
}

// Collection names, as returned in the aggregated payload.
const (
	Resources      = "resources"
	Hardware       = "hardware"
	Members        = "members"
	Faculty        = "faculty"
	Alumni         = "alumni"
	EventSimple    = "eventSimple"
	EventDetailed  = "eventDetailed"
	UpcomingEvents = "upcomingEvents"
	HotTopics      = "hotTopics"
	Projects       = "projects"
	VideoDumps     = "videoDumps"
)

// Catalog is the fixed set of queries the site runs.
var Catalog = []Collection{
	{
		Name:   Resources,
		Query:  `*[_type == "resource"] | order(category asc){..., image{"url": asset->url, alt}, file{"url": asset->url}}`,
		Assets: []string{"image", "file"},
	},
	{
		Name:   Hardware,
		Query:  `*[_type == "hardwareComponent"] | order(name asc){..., image{"url": asset->url, alt}, datasheet{"url": asset->url}}`,
		Assets: []string{"image", "datasheet"},
	},
	{
		Name:   Members,
		Query:  `*[_type == "member"]{..., image{"url": asset->url, alt}}`,
		Assets: []string{"image"},
	},
	{
		Name:   Faculty,
		Query:  `*[_type == "faculty"]{..., image{"url": asset->url, alt}}`,
		Assets: []string{"image"},
	},
	{
		Name:   Alumni,
		Query:  `*[_type == "alumni"]{..., image{"url": asset->url, alt}}`,
		Assets: []string{"image"},
	},
	{
		Name:  EventSimple,
		Query: `*[_type == "eventSimple"] | order(dateTime asc){_id, _type, title, description, dateTime}`,
		Kind:  models.KindSimple,
	},
	{
		Name: EventDetailed,
		Query: `*[_type == "eventDetailed"] | order(dateTime asc){..., ` +
			`images[]{"url": asset->url, caption, alt}, ` +
			`videos[]{"url": asset->url, caption}, ` +
			`speakers[]{..., photo{"url": asset->url}}}`,
		Assets: []string{"images[]", "videos[]", "speakers[].photo"},
		Kind:   models.KindDetailed,
	},
	{
		Name:   UpcomingEvents,
		Query:  `*[_type == "upcomingEvent"] | order(_createdAt desc){..., images[]{"url": asset->url, caption, alt}}`,
		Assets: []string{"images[]"},
		Kind:   models.KindUpcoming,
	},
	{
		Name:   HotTopics,
		Query:  `*[_type == "hotTopic"] | order(publishDate desc){..., imagery[]{description, image{"url": asset->url}}}`,
		Assets: []string{"imagery[].image"},
	},
	{
		Name:   Projects,
		Query:  `*[_type == "project"] | order(startDate desc){..., images[]{"url": asset->url, caption, alt}}`,
		Assets: []string{"images[]"},
	},
	{
		Name:   VideoDumps,
		Query:  `*[_type == "videoDump"] | order(_createdAt desc){..., video{"url": asset->url}, thumbnail{"url": asset->url}}`,
		Assets: []string{"video", "thumbnail"},
	},
}

// Pages maps each site page to the collections it renders.
var Pages = map[string][]string{
	"home":      {HotTopics},
	"about":     {Members, Faculty, Alumni},
	"events":    {EventSimple, EventDetailed, UpcomingEvents},
	"resources": {Resources, Hardware},
	"projects":  {Projects, VideoDumps},
	"pulse":     {HotTopics},
}

package dashboard

import (
	"time"

	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// Status is the state of a panel. The four values are mutually exclusive.
type Status string

const (
	StatusLoading Status = "loading"
	StatusData    Status = "data"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// Placeholder texts.
const (
	LoadingText   = "Loading earthquake data..."
	EmptyListText = "No earthquakes found for this time period"
	ErrorListText = "Error loading earthquake data. Please try again."
	EmptyNewsText = "No significant earthquakes reported this month."
	ErrorNewsText = "Unable to load earthquake news."
	NewsHeader    = "Significant Earthquakes This Month"
	siteTitle     = "Earthquake Dashboard"
)

// Item is one row of the list or news panel. Index matches the marker index.
type Item struct {
	Index     int        `json:"index"`
	Magnitude string     `json:"magnitude"`
	Tier      quake.Tier `json:"tier"`
	Class     string     `json:"class"`
	Place     string     `json:"place"`
	Time      string     `json:"time"`
	URL       string     `json:"url"`
}

// Panel is a list or news panel: items when Status is data, otherwise a
// placeholder.
type Panel struct {
	Status      Status `json:"status"`
	Placeholder string `json:"placeholder,omitempty"`
	Items       []Item `json:"items"`
}

// View is everything the page needs to draw the current state.
type View struct {
	Window       quake.Window `json:"window"`
	Presentation Presentation `json:"view"`
	Tab          Tab          `json:"tab"`

	Title  string `json:"title"`
	Header string `json:"header"`

	Markers        []quake.Marker    `json:"markers"`
	MarkersVisible bool              `json:"markersVisible"`
	Heat           []quake.HeatPoint `json:"heat"`
	HeatUpdated    bool              `json:"heatUpdated"`
	FitBounds      *quake.Bounds     `json:"fitBounds,omitempty"`

	List Panel `json:"list"`
	News Panel `json:"news"`
}

// Render derives the full view from s. It never reads previous output, so
// calling it twice on the same state yields equal views.
func Render(s State, loc *time.Location) View {
	v := View{
		Window:         s.Window,
		Presentation:   s.Presentation,
		Tab:            s.Tab,
		Markers:        quake.Markers(s.Records, loc),
		MarkersVisible: s.Presentation == Markers,
		List:           listPanel(s, loc),
		News:           newsPanel(s, loc),
	}

	if s.Loaded {
		v.Header = quake.Header(len(s.Records), s.Window)
	} else {
		v.Header = LoadingText
	}
	v.Title = v.Header + " | " + siteTitle

	if s.Presentation == Heatmap {
		if heat := quake.HeatPoints(s.Records); heat != nil {
			v.Heat = heat
			v.HeatUpdated = true
		}
	}

	if s.Fresh {
		if b, ok := quake.BoundsOf(s.Records); ok {
			v.FitBounds = &b
		}
	}
	return v
}

func listPanel(s State, loc *time.Location) Panel {
	switch {
	case !s.Loaded:
		return Panel{Status: StatusLoading, Placeholder: LoadingText, Items: []Item{}}
	case s.FetchErr != nil:
		return Panel{Status: StatusError, Placeholder: ErrorListText, Items: []Item{}}
	case len(s.Records) == 0:
		return Panel{Status: StatusEmpty, Placeholder: EmptyListText, Items: []Item{}}
	default:
		return Panel{Status: StatusData, Items: items(s.Records, loc)}
	}
}

func newsPanel(s State, loc *time.Location) Panel {
	switch {
	case !s.NewsLoaded:
		return Panel{Status: StatusLoading, Placeholder: LoadingText, Items: []Item{}}
	case s.NewsErr != nil:
		return Panel{Status: StatusError, Placeholder: ErrorNewsText, Items: []Item{}}
	case len(s.News) == 0:
		return Panel{Status: StatusEmpty, Placeholder: EmptyNewsText, Items: []Item{}}
	default:
		return Panel{Status: StatusData, Items: items(s.News, loc)}
	}
}

// items keeps feed order so that item i and marker i describe the same event.
func items(events []quake.Event, loc *time.Location) []Item {
	out := make([]Item, len(events))
	for i, e := range events {
		tier := quake.TierOf(e.Magnitude)
		out[i] = Item{
			Index:     i,
			Magnitude: quake.FormatMagnitude(e.Magnitude),
			Tier:      tier,
			Class:     tier.Class(),
			Place:     e.Place,
			Time:      quake.FormatTime(e.Time, loc),
			URL:       e.URL,
		}
	}
	return out
}

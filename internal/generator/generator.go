package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/Zachdehooge/quake-dashboard/internal/dashboard"
	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// DefaultFitPadding is the fitBounds padding in pixels.
const DefaultFitPadding = 50

// Page is everything the dashboard template needs.
type Page struct {
	View dashboard.View

	// RefreshSeconds reloads the page after that many idle seconds. Zero
	// disables the reload.
	RefreshSeconds int
	FitPadding     int
	LastUpdated    string

	// Interactive renders the controls as forms posting to the server.
	// A static page shows the current selection only.
	Interactive bool
}

// NewPage builds a Page for v, stamped with now in loc.
func NewPage(v dashboard.View, refresh time.Duration, fitPadding int, now time.Time, loc *time.Location) Page {
	if fitPadding <= 0 {
		fitPadding = DefaultFitPadding
	}
	return Page{
		View:           v,
		RefreshSeconds: int(refresh / time.Second),
		FitPadding:     fitPadding,
		LastUpdated:    quake.FormatTime(now, loc),
	}
}

// choice is a presentation or tab button.
type choice struct {
	Interactive bool
	Field       string
	Value       string
	Label       string
	Active      bool
}

func control(interactive bool, field, value, label string, active bool) choice {
	return choice{Interactive: interactive, Field: field, Value: value, Label: label, Active: active}
}

var pageTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"toJSON":  toJSON,
	"control": control,
	"windows": func() []quake.Window { return quake.Windows },
}).Parse(pageHTML))

// Render writes the dashboard page for p to w.
func Render(w io.Writer, p Page) error {
	if p.FitPadding <= 0 {
		p.FitPadding = DefaultFitPadding
	}
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// WriteFile renders p to path. The page is written to a temp file and
// renamed so a browser never reads a partial file.
func WriteFile(path string, p Page) error {
	var buf bytes.Buffer
	if err := Render(&buf, p); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write tmp failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <meta name="viewport" content="width=device-width, initial-scale=1"/>
   {{if gt .RefreshSeconds 0}}<meta http-equiv="refresh" content="{{.RefreshSeconds}}"/>{{end}}
   <title>{{.View.Title}}</title>
   <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" />
   <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
   <script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
   <style>
      :root {
         --bg-color: #121212;
         --text-color: #e0e0e0;
         --card-bg: #1e1e1e;
         --card-border: #333;
         --summary-bg: #252525;
         --tab-active-bg: #3d3d5c;
         --high: #dc3545;
         --medium: #ffc107;
         --low: #28a745;
      }
      html { background-color: #121212; }
      body {
         font-family: Arial, sans-serif;
         margin: 0 auto;
         padding: 20px;
         max-width: 1400px;
         background-color: var(--bg-color);
         color: var(--text-color);
      }
      header { display: flex; justify-content: space-between; align-items: center; flex-wrap: wrap; }
      .controls { display: flex; gap: 15px; flex-wrap: wrap; align-items: center; }
      .control-group { display: flex; gap: 4px; }
      .control-group form { margin: 0; }
      .filter-btn, .view-btn, .tab-btn, .refresh-btn {
         background-color: var(--summary-bg); color: var(--text-color);
         border: 1px solid var(--card-border); border-radius: 4px;
         padding: 6px 12px; cursor: pointer; display: inline-block;
      }
      .active { background-color: var(--tab-active-bg); border-color: #666; }
      .layout { display: grid; grid-template-columns: 2fr 1fr; gap: 15px; margin-top: 15px; }
      @media (max-width: 900px) { .layout { grid-template-columns: 1fr; } }
      #map { height: 640px; width: 100%; border: 2px solid var(--card-border); border-radius: 5px; }
      .panel { background-color: var(--card-bg); border: 1px solid var(--card-border); border-radius: 5px; padding: 10px; }
      .panel-header h2 { font-size: 1.1em; margin: 5px 0 10px; }
      .tabs { display: flex; gap: 4px; margin-bottom: 10px; }
      .tab-content { max-height: 560px; overflow-y: auto; }
      .hidden { display: none; }
      .earthquake-item, .news-item {
         display: flex; align-items: center; gap: 10px;
         padding: 8px; border-bottom: 1px solid var(--card-border);
      }
      .earthquake-item { cursor: pointer; }
      .earthquake-item:hover { background-color: var(--summary-bg); }
      .magnitude { font-weight: bold; min-width: 40px; text-align: center; border-radius: 4px; padding: 4px; color: #121212; }
      .magnitude-high { background-color: var(--high); color: #fff; }
      .magnitude-medium { background-color: var(--medium); }
      .magnitude-low { background-color: var(--low); }
      .earthquake-time { font-size: 0.85em; color: #aaa; }
      .news-item a { color: #add8e6; }
      .loading-message, .empty-message, .error-message { padding: 15px; text-align: center; color: #aaa; }
      .error-message { color: var(--high); }
      .last-updated { font-size: 0.8em; color: #888; margin-top: 10px; }
      .popup-content h3 { margin: 0 0 5px; }
   </style>
</head>
<body>
<header>
   <h1>Earthquake Dashboard</h1>
   <div class="controls">
      <div class="control-group" id="window-controls">
         {{range windows}}
         {{if $.Interactive}}
         <form method="post" action="/window">
            <input type="hidden" name="window" value="{{.}}"/>
            <button type="submit" class="filter-btn{{if eq $.View.Window .}} active{{end}}" data-days="{{.}}">{{.Short}}</button>
         </form>
         {{else}}
         <span class="filter-btn{{if eq $.View.Window .}} active{{end}}" data-days="{{.}}">{{.Short}}</span>
         {{end}}
         {{end}}
      </div>
      <div class="control-group" id="view-controls">
         {{template "choice" (control $.Interactive "view" "markers" "Markers" (eq (print .View.Presentation) "markers"))}}
         {{template "choice" (control $.Interactive "view" "heatmap" "Heatmap" (eq (print .View.Presentation) "heatmap"))}}
      </div>
      {{if .Interactive}}
      <form method="post" action="/refresh"><button type="submit" class="refresh-btn">Refresh</button></form>
      {{end}}
   </div>
</header>

<div class="layout">
   <div id="map"></div>
   <div class="panel">
      <div class="tabs">
         {{template "choice" (control $.Interactive "tab" "list" "List" (eq (print .View.Tab) "list"))}}
         {{template "choice" (control $.Interactive "tab" "news" "News" (eq (print .View.Tab) "news"))}}
      </div>
      <div id="list-view" class="tab-content{{if ne (print .View.Tab) "list"}} hidden{{end}}">
         <div class="panel-header"><h2>{{.View.Header}}</h2></div>
         {{if eq (print .View.List.Status) "data"}}
         {{range .View.List.Items}}
         <div class="earthquake-item" data-index="{{.Index}}">
            <span class="magnitude magnitude-{{.Class}}">{{.Magnitude}}</span>
            <div class="earthquake-info">
               <div class="earthquake-place">{{.Place}}</div>
               <div class="earthquake-time">{{.Time}}</div>
            </div>
         </div>
         {{end}}
         {{else}}
         <div class="{{.View.List.Status}}-message">{{.View.List.Placeholder}}</div>
         {{end}}
      </div>
      <div id="news-view" class="tab-content{{if ne (print .View.Tab) "news"}} hidden{{end}}">
         <div class="panel-header"><h2>Significant Earthquakes This Month</h2></div>
         {{if eq (print .View.News.Status) "data"}}
         {{range .View.News.Items}}
         <div class="news-item">
            <span class="magnitude magnitude-{{.Class}}">{{.Magnitude}}</span>
            <div class="earthquake-info">
               <div class="earthquake-place"><a href="{{.URL}}" target="_blank" rel="noopener">{{.Place}}</a></div>
               <div class="earthquake-time">{{.Time}}</div>
            </div>
         </div>
         {{end}}
         {{else}}
         <div class="{{.View.News.Status}}-message">{{.View.News.Placeholder}}</div>
         {{end}}
      </div>
      <div class="last-updated">Last updated: {{.LastUpdated}}</div>
   </div>
</div>

<script>
   const view = {{toJSON .View}};
   const fitPadding = {{.FitPadding}};

   const map = L.map('map', { zoomControl: false, maxZoom: 18, minZoom: 2 }).setView([30, 0], 2);
   L.control.zoom({ position: 'bottomright' }).addTo(map);
   L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
      attribution: '&copy; OpenStreetMap contributors'
   }).addTo(map);

   const heatLayer = L.heatLayer([], {
      radius: 25,
      blur: 15,
      maxZoom: 10,
      max: 1.0,
      gradient: { 0.1: '#28a745', 0.3: '#ffc107', 0.6: '#fd7e14', 1.0: '#dc3545' }
   }).addTo(map);

   function popupContent(p) {
      const div = document.createElement('div');
      div.className = 'popup-content';
      const h = document.createElement('h3');
      h.textContent = 'Magnitude ' + p.magnitude;
      const place = document.createElement('p');
      place.textContent = p.place;
      const when = document.createElement('p');
      when.textContent = 'Time: ' + p.time;
      const link = document.createElement('a');
      link.href = p.url;
      link.target = '_blank';
      link.rel = 'noopener';
      link.textContent = 'More info';
      div.append(h, place, when, link);
      return div;
   }

   const markers = view.markers.map(m => {
      const marker = L.circleMarker([m.lat, m.lon], {
         radius: m.radius,
         color: m.color,
         fillColor: m.color,
         fillOpacity: 0.7,
         weight: 1,
         stroke: true
      });
      marker.bindPopup(popupContent(m.popup));
      if (view.markersVisible) {
         marker.addTo(map);
      }
      return marker;
   });

   if (view.heatUpdated) {
      heatLayer.setLatLngs(view.heat.map(p => [p.lat, p.lon, p.intensity]));
   }

   // Fit once per fresh data set; otherwise keep the viewport the user left.
   const fitted = sessionStorage.getItem('quake-fitted');
   const bounds = view.fitBounds ? JSON.stringify(view.fitBounds) : null;
   const saved = sessionStorage.getItem('quake-viewport');
   if (bounds && bounds !== fitted) {
      const b = view.fitBounds;
      map.fitBounds([[b.minLat, b.minLon], [b.maxLat, b.maxLon]], { padding: [fitPadding, fitPadding] });
      sessionStorage.setItem('quake-fitted', bounds);
   } else if (saved) {
      const v = JSON.parse(saved);
      map.setView([v.lat, v.lng], v.zoom);
   }
   map.on('moveend', () => {
      const c = map.getCenter();
      sessionStorage.setItem('quake-viewport', JSON.stringify({ lat: c.lat, lng: c.lng, zoom: map.getZoom() }));
   });

   document.addEventListener('click', e => {
      const item = e.target.closest('.earthquake-item');
      if (!item) {
         return;
      }
      const i = Number(item.dataset.index);
      const marker = markers[i];
      if (!marker) {
         return;
      }
      map.setView(marker.getLatLng(), 8);
      if (map.hasLayer(marker)) {
         marker.openPopup();
      } else {
         L.popup().setLatLng(marker.getLatLng()).setContent(popupContent(view.markers[i].popup)).openOn(map);
      }
   });
</script>
</body>
</html>
{{define "choice"}}{{if .Interactive}}<form method="post" action="/{{.Field}}"><input type="hidden" name="{{.Field}}" value="{{.Value}}"/><button type="submit" class="{{.Field}}-btn{{if .Active}} active{{end}}" data-value="{{.Value}}">{{.Label}}</button></form>{{else}}<span class="{{.Field}}-btn{{if .Active}} active{{end}}" data-value="{{.Value}}">{{.Label}}</span>{{end}}{{end}}
`

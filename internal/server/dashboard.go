package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/quotefunnel/quotefunnel/internal/stats"
)

type dashboardData struct {
	Variants           []dashboardVariant
	Confident          bool
	ConfidencePercent  float64
	LeadingVariantName string
	Leads              []dashboardLead
}

type dashboardVariant struct {
	ID          int64
	Name        string
	Headline    string
	Views       int
	Conversions int
	RatePercent string
	CI          string
	Active      bool
	Default     bool
	Leading     bool
}

type dashboardLead struct {
	ID        int64
	Name      string
	Location  string
	Vehicle   string
	Email     string
	Phone     string
	Status    string
	CreatedAt string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	ctx := r.Context()

	variants, err := s.store.ListVariants(ctx)
	if err != nil {
		http.Error(w, "Failed to load variants", http.StatusInternalServerError)
		return
	}
	variantStats, err := s.store.GetVariantStats(ctx)
	if err != nil {
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}
	recentLeads, err := s.store.ListLeads(ctx, 25)
	if err != nil {
		http.Error(w, "Failed to load leads", http.StatusInternalServerError)
		return
	}

	result := stats.Analyze(variants, variantStats)

	data := dashboardData{
		Confident:         result.Confident,
		ConfidencePercent: result.ConfidenceLevel * 100,
	}
	if len(result.Variants) > 0 {
		data.LeadingVariantName = result.Variants[result.Leading].Name
	}

	for i, v := range result.Variants {
		ci := "N/A"
		if v.Views > 0 {
			ci = fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower*100, v.CIUpper*100)
		}
		data.Variants = append(data.Variants, dashboardVariant{
			ID:          v.VariantID,
			Name:        v.Name,
			Headline:    v.Headline,
			Views:       v.Views,
			Conversions: v.Conversions,
			RatePercent: fmt.Sprintf("%.2f%%", v.Rate*100),
			CI:          ci,
			Active:      v.IsActive,
			Default:     v.IsDefault,
			Leading:     i == result.Leading && len(result.Variants) > 1,
		})
	}

	for _, l := range recentLeads {
		data.Leads = append(data.Leads, dashboardLead{
			ID:        l.ID,
			Name:      l.FirstName + " " + l.LastName,
			Location:  l.State + " " + l.ZipCode,
			Vehicle:   fmt.Sprintf("%d %s", l.VehicleYear, l.VehicleType),
			Email:     l.Email,
			Phone:     l.Phone,
			Status:    string(l.Status),
			CreatedAt: l.CreatedAt.Format("Jan 2, 2006 15:04"),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Warn("failed to render dashboard")
	}
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>quotefunnel dashboard</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a1a; }
h1 { font-size: 1.4rem; } h2 { font-size: 1.1rem; margin-top: 2rem; }
table { border-collapse: collapse; width: 100%; margin-top: 0.5rem; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #ddd; font-size: 0.9rem; }
th { color: #666; font-weight: 600; }
.tag { display: inline-block; padding: 0 0.4rem; border-radius: 3px; font-size: 0.75rem; background: #eee; }
.tag.leading { background: #d4edda; }
.tag.default { background: #fff3cd; }
.muted { color: #888; }
a { color: inherit; }
</style>
</head>
<body>
<h1>quotefunnel <span class="muted">dashboard</span> <small><a href="/dashboard?logout=1">logout</a></small></h1>

<h2>Variants</h2>
<table>
<tr><th>ID</th><th>Name</th><th>Headline</th><th>Views</th><th>Conversions</th><th>Rate</th><th>95% CI</th><th></th></tr>
{{range .Variants}}
<tr>
<td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Headline}}</td>
<td>{{.Views}}</td><td>{{.Conversions}}</td><td>{{.RatePercent}}</td><td>{{.CI}}</td>
<td>
{{if .Leading}}<span class="tag leading">leading</span>{{end}}
{{if .Default}}<span class="tag default">default</span>{{end}}
{{if not .Active}}<span class="tag">inactive</span>{{end}}
</td>
</tr>
{{else}}
<tr><td colspan="8" class="muted">No variants yet</td></tr>
{{end}}
</table>
{{if .LeadingVariantName}}
<p class="muted">
{{if .Confident}}{{printf "%.1f" .ConfidencePercent}}% confident "{{.LeadingVariantName}}" is the winner
{{else}}Not enough data to declare a winner ({{printf "%.1f" .ConfidencePercent}}% for "{{.LeadingVariantName}}"){{end}}
</p>
{{end}}

<h2>Recent leads</h2>
<table>
<tr><th>ID</th><th>Name</th><th>Location</th><th>Vehicle</th><th>Email</th><th>Phone</th><th>Status</th><th>Received</th></tr>
{{range .Leads}}
<tr>
<td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Location}}</td><td>{{.Vehicle}}</td>
<td>{{.Email}}</td><td>{{.Phone}}</td><td>{{.Status}}</td><td>{{.CreatedAt}}</td>
</tr>
{{else}}
<tr><td colspan="8" class="muted">No leads yet</td></tr>
{{end}}
</table>
</body>
</html>
`))

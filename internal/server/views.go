package server

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/doctopus/leavewatch/pkg/dashboard"
	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/roster"
	"github.com/doctopus/leavewatch/pkg/tracking"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html" // Using . import for convenience with html tags
)

const (
	holidaysColor = "#1E88E5"
	replacedColor = "#43A047"
	chartHeightPx = 180
)

// indexPage is everything the main page renders.
type indexPage struct {
	ReportURL string
	Return    string
	Dataset   *report.Dataset
	FetchErr  error
	Filter    roster.Filter
	Summary   dashboard.Summary
	OrgUnits  []string
	Weeks     []string
	Rows      []roster.Row
}

// Page layout component
func pageLayout(title string, content ...g.Node) g.Node {
	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(Lang("fr"),
			Head(
				Meta(Charset("UTF-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(title)),
				Script(Src("https://cdn.tailwindcss.com")),
				Script(Src("https://unpkg.com/htmx.org@2.0.4")),
			),
			Body(Class("bg-slate-50 font-sans antialiased text-slate-800"),
				Div(Class("max-w-7xl mx-auto px-4 py-6"), g.Group(content)),
			),
		),
	})
}

func renderIndex(p indexPage) g.Node {
	return pageLayout("Suivi des congés - Doctopus",
		H1(Class("text-3xl font-bold mb-4"), g.Text("Suivi des congés - Doctopus")),
		sourceBar(p),
		errorBanner(p.FetchErr),
		g.If(p.Dataset != nil, g.Group([]g.Node{
			Hr(Class("my-6")),
			dashboardSection(p.Summary),
			Hr(Class("my-6")),
			Div(Class("grid grid-cols-1 lg:grid-cols-4 gap-6"),
				Div(Class("lg:col-span-3"), rosterSection(p)),
				Div(replacementsPanel(p.Summary)),
			),
		})),
	)
}

func sourceBar(p indexPage) g.Node {
	return Div(Class("flex items-center gap-4"),
		Div(Class("flex-grow rounded bg-sky-100 text-sky-900 px-4 py-2 text-sm break-all"),
			g.Text("URL Metabase: "+p.ReportURL),
		),
		Form(Method("post"), Action("/refresh"),
			Input(Type("hidden"), Name("return"), Value(p.Return)),
			Button(Type("submit"), Class("rounded bg-slate-800 text-white px-4 py-2 text-sm"),
				g.Text("Rafraîchir les données"),
			),
		),
	)
}

func errorBanner(err error) g.Node {
	if err == nil {
		return nil
	}
	return Div(Class("mt-4 rounded bg-red-100 text-red-800 px-4 py-2 text-sm"), g.Attr("role", "alert"),
		g.Text("Error fetching data: "+err.Error()),
	)
}

func metric(label, value string) g.Node {
	return Div(Class("rounded bg-white shadow px-4 py-3"),
		P(Class("text-sm text-slate-500"), g.Text(label)),
		P(Class("text-3xl font-semibold"), g.Text(value)),
	)
}

func dashboardSection(s dashboard.Summary) g.Node {
	return Div(
		H2(Class("text-xl font-semibold mb-4"), g.Text("Tableau de bord")),
		Div(Class("grid grid-cols-3 gap-4 mb-6"),
			metric("Nombre total de médecins", strconv.Itoa(s.TotalStaff)),
			metric("Médecins remplacés", strconv.Itoa(s.TotalTracked)),
			metric("Taux de remplacement", strconv.FormatFloat(s.ReplacementRate, 'f', -1, 64)),
		),
		Div(Class("grid grid-cols-1 md:grid-cols-2 gap-6"),
			barChart("Médecins en congés par semaine", s.Weeks, s.MaxTotal(), holidaysColor,
				func(w dashboard.WeekCount) int { return w.Total }),
			Div(
				barChart("Médecins remplacés par semaine", s.Weeks, s.MaxTracked(), replacedColor,
					func(w dashboard.WeekCount) int { return w.Tracked }),
				g.If(len(s.OrphanWeeks) > 0, orphanWeeksNote(s.OrphanWeeks)),
			),
		),
	)
}

func barChart(title string, weeks []dashboard.WeekCount, max int, color string, value func(dashboard.WeekCount) int) g.Node {
	return Div(Class("rounded bg-white shadow p-4"),
		H3(Class("font-semibold mb-2"), g.Text(title)),
		Div(Class("flex items-end gap-2"), Style(fmt.Sprintf("height:%dpx", chartHeightPx+20)),
			g.Map(weeks, func(w dashboard.WeekCount) g.Node {
				v := value(w)
				return Div(Class("flex flex-col items-center justify-end flex-1 h-full"),
					Span(Class("text-xs"), g.Text(strconv.Itoa(v))),
					Div(Class("w-full rounded-t"),
						Style(fmt.Sprintf("height:%dpx;background:%s", barHeight(v, max), color)),
						Title(fmt.Sprintf("%s: %d", w.Week, v)),
					),
				)
			}),
		),
		Div(Class("flex gap-2 mt-1"),
			g.Map(weeks, func(w dashboard.WeekCount) g.Node {
				return Span(Class("flex-1 text-center text-xs text-slate-500 truncate"), g.Text(w.Week))
			}),
		),
	)
}

func barHeight(v, max int) int {
	if max <= 0 {
		return 0
	}
	return v * chartHeightPx / max
}

func orphanWeeksNote(weeks []dashboard.WeekCount) g.Node {
	return Div(Class("mt-2 text-xs text-amber-700"),
		g.Text("Remplacements sur des semaines absentes du rapport: "),
		g.Map(weeks, func(w dashboard.WeekCount) g.Node {
			return Span(Class("mr-2"), g.Textf("%s (%d)", w.Week, w.Tracked))
		}),
	)
}

func rosterSection(p indexPage) g.Node {
	return Div(
		H2(Class("text-xl font-semibold mb-4"), g.Text("Liste des médecins")),
		filterForm(p),
		g.If(len(p.Rows) == 0, P(Class("text-slate-500 mt-4"), g.Text("Aucun médecin ne correspond aux filtres."))),
		Div(Class("divide-y mt-4"),
			g.Map(p.Rows, func(r roster.Row) g.Node { return rosterRow(r, p.Return) }),
		),
	)
}

func filterForm(p indexPage) g.Node {
	return Form(Method("get"), Action("/"), Class("grid grid-cols-1 md:grid-cols-4 gap-4 items-end"),
		Div(
			Label(For("search"), Class("block text-sm"), g.Text("Rechercher avec nom du médecin:")),
			Input(Type("text"), ID("search"), Name("search"), Value(p.Filter.Search), Class("w-full border rounded px-2 py-1")),
		),
		multiSelect("csm", "Filtrer par CSM", p.OrgUnits, p.Filter.OrgUnits),
		multiSelect("week", "Filtrer par Semaine", p.Weeks, p.Filter.Weeks),
		Button(Type("submit"), Class("rounded bg-slate-800 text-white px-4 py-2 text-sm"), g.Text("Filtrer")),
	)
}

func multiSelect(name, label string, options, selected []string) g.Node {
	all := len(selected) == 0 || slices.Contains(selected, roster.All)
	return Div(
		Label(For(name), Class("block text-sm"), g.Text(label)),
		Select(ID(name), Name(name), Multiple(), Class("w-full border rounded px-2 py-1"),
			Option(Value(roster.All), g.If(all, Selected()), g.Text(roster.All)),
			g.Map(options, func(o string) g.Node {
				return Option(Value(o), g.If(!all && slices.Contains(selected, o), Selected()), g.Text(o))
			}),
		),
	)
}

func hiddenKey(k tracking.Key, ret string) g.Node {
	return g.Group([]g.Node{
		Input(Type("hidden"), Name("id"), Value(k.ID)),
		Input(Type("hidden"), Name("week"), Value(k.Week)),
		Input(Type("hidden"), Name("return"), Value(ret)),
	})
}

func rosterRow(r roster.Row, ret string) g.Node {
	s := r.Staff
	return Div(Class("grid grid-cols-5 gap-4 py-3"),
		Form(Method("post"), Action("/tracking/toggle"), Class("col-span-1"),
			hiddenKey(r.Key(), ret),
			Label(Class("inline-flex items-center gap-2"),
				Input(Type("checkbox"), Name("checked"), Value("on"), g.If(r.Tracked, Checked()),
					g.Attr("onchange", "this.form.submit()")),
				g.Text("Replaced"),
			),
			NoScript(Button(Type("submit"), Class("ml-2 text-xs underline"), g.Text("OK"))),
		),
		Div(Class("col-span-4"),
			P(Strong(g.Text(s.Name))),
			P(Class("text-sm text-slate-600"),
				g.Textf("RPPS: %s | Semaine: %s | Contrat: %s | CSM: %s", s.ID, s.Week, s.ContractType, s.CSM)),
			P(Class("text-sm text-slate-600"),
				g.Textf("Heures Planifiées: %s | Heures Contractuelles: %s", hours(s.PlannedHours), hours(s.ContractualHours))),
			replacementEditor(r, ret),
		),
	)
}

func replacementEditor(r roster.Row, ret string) g.Node {
	if !r.Tracked || r.Record == nil {
		return nil
	}
	return Div(Class("mt-2"),
		Form(Method("post"), Action("/tracking/replacement"), Class("flex items-end gap-2"),
			hiddenKey(r.Key(), ret),
			Div(Class("flex-grow"),
				Label(Class("block text-sm"), g.Text("Par qui est remplacé le CDI ?")),
				Input(Type("text"), Name("replacement_by"), Value(r.Record.ReplacementBy), g.Attr("maxlength", "200"),
					Class("w-full border rounded px-2 py-1")),
			),
			Button(Type("submit"), Class("rounded bg-slate-200 px-3 py-1 text-sm"), g.Text("Enregistrer")),
		),
		P(Class("mt-1 rounded bg-sky-100 text-sky-900 px-3 py-1 text-sm"),
			g.Text("Marqué comme remplacé le: "+r.Record.Date)),
	)
}

func replacementsPanel(s dashboard.Summary) g.Node {
	return Div(Class("rounded bg-white shadow p-4"),
		H2(Class("text-xl font-semibold mb-2"), g.Text("Remplacements")),
		P(g.Textf("Effectif total remplacé: %d", s.TotalTracked)),
		g.If(s.TotalTracked > 0, g.Group([]g.Node{
			P(Class("mt-4 font-semibold"), g.Text("Remplacements recents:")),
			Ul(Class("mt-2 space-y-2"),
				g.Map(s.Recent, func(r tracking.Record) g.Node {
					return Li(
						Strong(g.Text(r.Name)), Br(),
						Span(Class("text-sm text-slate-600"), g.Textf("%s | %s", r.Date, r.CSM)),
					)
				}),
			),
			A(Href("/export.csv"), Class("inline-block mt-4 rounded bg-slate-800 text-white px-4 py-2 text-sm"),
				g.Text("Télécharger CSV")),
		})),
	)
}

func hours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

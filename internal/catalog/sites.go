package catalog

import "github.com/mohammed-shakir/cartalex/internal/predicate"

// LayerSites is the map layer holding excavation sites.
const LayerSites = "sitesFouilles"

var schema = map[string][]string{
	"sites_fouilles":    {"id", "num_tkaczow", "commentaire", "x", "y", "uri_geonames"},
	"vestiges":          {"id", "id_site", "id_caracterisation", "name"},
	"datations":         {"id", "id_vestige", "id_periode", "annee"},
	"periodes":          {"id", "periode", "debut", "fin"},
	"caracterisations":  {"id", "caracterisation"},
	"decouvertes":       {"id", "id_site", "id_inventeur", "annee"},
	"personnes":         {"id", "nom", "prenom"},
	"references_biblio": {"id", "id_decouverte", "id_bibliographie", "pages"},
	"bibliographies":    {"id", "id_auteur1", "nom_document", "annee"},
}

var detailsTables = []string{
	"sites_fouilles", "vestiges", "datations", "periodes", "caracterisations",
	"decouvertes", "references_biblio", "bibliographies",
}

// Site details queries take the site id as $1.
const (
	DetailsSiteSQL = `SELECT id, num_tkaczow, commentaire, x, y FROM sites_fouilles WHERE id = $1`

	DetailsVestigesSQL = `SELECT c.caracterisation, p.periode FROM vestiges AS v` +
		` JOIN caracterisations AS c ON v.id_caracterisation = c.id` +
		` LEFT JOIN datations AS d ON d.id_vestige = v.id` +
		` LEFT JOIN periodes AS p ON d.id_periode = p.id` +
		` WHERE v.id_site = $1 ORDER BY c.caracterisation, p.periode`

	DetailsBibliographiesSQL = `SELECT DISTINCT b.id, b.nom_document FROM decouvertes AS d` +
		` JOIN references_biblio AS rb ON rb.id_decouverte = d.id` +
		` JOIN bibliographies AS b ON b.id = rb.id_bibliographie` +
		` WHERE d.id_site = $1 ORDER BY b.nom_document`

	// ZoneSitesSQL lists site coordinates for spatial bucketing.
	ZoneSitesSQL = `SELECT id AS site_id, x, y FROM sites_fouilles WHERE x IS NOT NULL AND y IS NOT NULL ORDER BY id`
)

// Sites returns the catalog for the excavation-site layer.
func Sites() *Catalog {
	return &Catalog{
		layer:  LayerSites,
		tables: schema,
		values: map[string]ValueSource{
			"vestiges": {
				Name: "vestiges",
				From: " FROM vestiges" +
					" JOIN datations ON vestiges.id = datations.id_vestige" +
					" JOIN caracterisations ON vestiges.id_caracterisation = caracterisations.id" +
					" JOIN periodes ON datations.id_periode = periodes.id",
				Tables: []string{"vestiges", "datations", "caracterisations", "periodes"},
			},
			"bibliographies": {
				Name:   "bibliographies",
				From:   " FROM bibliographies JOIN personnes ON bibliographies.id_auteur1 = personnes.id",
				Tables: []string{"bibliographies", "personnes"},
			},
			"periodes": {
				Name:   "periodes",
				From:   " FROM periodes",
				Tables: []string{"periodes"},
			},
			"decouvertes": {
				Name:   "decouvertes",
				From:   " FROM decouvertes JOIN personnes ON decouvertes.id_inventeur = personnes.id",
				Tables: []string{"decouvertes", "personnes"},
			},
		},
		candidates: map[string]CandidateSource{
			// flattened view named after its main table
			"vestiges": {
				Name: "vestiges",
				Query: "SELECT DISTINCT vestiges.site_id FROM (" +
					"SELECT v.id, v.id_site AS site_id, v.name, c.caracterisation, p.periode, d.annee" +
					" FROM vestiges AS v" +
					" JOIN datations AS d ON d.id_vestige = v.id" +
					" JOIN periodes AS p ON d.id_periode = p.id" +
					" JOIN caracterisations AS c ON v.id_caracterisation = c.id) AS vestiges",
				Suffix:    " ORDER BY vestiges.site_id",
				Qualifier: predicate.MainTable("vestiges"),
				Columns: []string{
					"vestiges.id", "vestiges.site_id", "vestiges.name",
					"vestiges.caracterisation", "vestiges.periode", "vestiges.annee",
				},
				Tables: []string{"vestiges", "datations", "periodes", "caracterisations"},
			},
			"decouvertes": {
				Name: "decouvertes",
				Query: "SELECT DISTINCT sf.id AS site_id FROM sites_fouilles AS sf" +
					" JOIN decouvertes AS d ON sf.id = d.id_site" +
					" JOIN personnes AS p ON d.id_inventeur = p.id",
				Suffix:    " ORDER BY site_id",
				Qualifier: predicate.PerParameter(),
				Columns: []string{
					"sf.id", "sf.num_tkaczow", "d.id", "d.annee", "p.id", "p.nom", "p.prenom",
				},
				Tables: []string{"sites_fouilles", "decouvertes", "personnes"},
			},
			"bibliographies": {
				Name: "bibliographies",
				Query: "SELECT DISTINCT sf.site_id FROM (" +
					"SELECT s.id AS site_id, b.id AS biblio_id, b.nom_document, b.annee, p.nom AS auteur" +
					" FROM sites_fouilles AS s" +
					" JOIN decouvertes AS d ON s.id = d.id_site" +
					" JOIN references_biblio AS rb ON rb.id_decouverte = d.id" +
					" JOIN bibliographies AS b ON b.id = rb.id_bibliographie" +
					" JOIN personnes AS p ON p.id = b.id_auteur1) AS sf",
				Suffix:    " ORDER BY sf.site_id",
				Qualifier: predicate.FixedAlias("sf"),
				Columns: []string{
					"sf.site_id", "sf.biblio_id", "sf.nom_document", "sf.annee", "sf.auteur",
				},
				Tables: []string{"sites_fouilles", "decouvertes", "references_biblio", "bibliographies", "personnes"},
			},
		},
		infos: CandidateSource{
			Name: "sitesFouilles",
			Query: "SELECT sf.id AS site_id, sf.num_tkaczow, sf.commentaire AS sf_commentaire, sf.x, sf.y," +
				" d.id AS decouverte_id, pers.id AS inventeur_id, pers.nom AS inventeur" +
				" FROM sites_fouilles AS sf" +
				" LEFT JOIN decouvertes AS d ON sf.id = d.id_site" +
				" LEFT JOIN personnes AS pers ON d.id_inventeur = pers.id",
			Suffix:    " ORDER BY sf.id, d.id",
			Qualifier: predicate.FixedAlias("sf"),
			Columns:   []string{"sf.id", "sf.num_tkaczow", "sf.x", "sf.y", "sf.uri_geonames"},
			Tables:    []string{"sites_fouilles", "decouvertes", "personnes"},
		},
	}
}

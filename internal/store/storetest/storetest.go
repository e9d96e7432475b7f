// Package storetest provides an in-memory SQLite backing store seeded with a
// small excavation-site dataset.
package storetest

import (
	"context"
	"testing"

	"github.com/mohammed-shakir/cartalex/internal/store"
)

const Schema = `
CREATE TABLE sites_fouilles (id INTEGER PRIMARY KEY, num_tkaczow TEXT, commentaire TEXT, x REAL, y REAL, uri_geonames TEXT);
CREATE TABLE caracterisations (id INTEGER PRIMARY KEY, caracterisation TEXT NOT NULL);
CREATE TABLE periodes (id INTEGER PRIMARY KEY, periode TEXT NOT NULL, debut INTEGER, fin INTEGER);
CREATE TABLE vestiges (id INTEGER PRIMARY KEY, id_site INTEGER NOT NULL, id_caracterisation INTEGER NOT NULL, name TEXT);
CREATE TABLE datations (id INTEGER PRIMARY KEY, id_vestige INTEGER NOT NULL, id_periode INTEGER NOT NULL, annee INTEGER);
CREATE TABLE personnes (id INTEGER PRIMARY KEY, nom TEXT NOT NULL, prenom TEXT);
CREATE TABLE decouvertes (id INTEGER PRIMARY KEY, id_site INTEGER NOT NULL, id_inventeur INTEGER NOT NULL, annee INTEGER);
CREATE TABLE bibliographies (id INTEGER PRIMARY KEY, id_auteur1 INTEGER NOT NULL, nom_document TEXT NOT NULL, annee INTEGER);
CREATE TABLE references_biblio (id INTEGER PRIMARY KEY, id_decouverte INTEGER NOT NULL, id_bibliographie INTEGER NOT NULL, pages TEXT);
`

// Seed yields, per facet:
//
//	periode Romain -> sites 1,3    periode Byzantin -> sites 2,4
//	inventeur Breccia -> sites 1,3 auteur Adriani -> site 2
const Seed = `
INSERT INTO sites_fouilles VALUES
	(1, 'T1', 'Quartier royal', 29.9090, 31.2100, NULL),
	(2, 'T2', 'Kom el-Dikka', 29.9070, 31.1950, NULL),
	(3, 'T3', 'Serapeum', 29.8960, 31.1820, NULL),
	(4, 'T4', 'Necropole ouest', 29.8700, 31.1700, NULL),
	(5, 'T5', 'Sans coordonnees', NULL, NULL, NULL);
INSERT INTO caracterisations VALUES (1, 'Mur'), (2, 'Mosaique'), (3, 'Citerne');
INSERT INTO periodes VALUES (1, 'Romain', -30, 395), (2, 'Byzantin', 395, 641), (3, 'Ptolemaique', -323, -30);
INSERT INTO vestiges VALUES
	(1, 1, 1, 'mur nord'), (2, 2, 2, 'pavement'), (3, 3, 1, 'enceinte'),
	(4, 3, 3, 'citerne'), (5, 4, 2, 'sol');
INSERT INTO datations VALUES
	(1, 1, 1, 100), (2, 2, 2, 450), (3, 3, 1, 150), (4, 4, 3, -200), (5, 5, 2, 500);
INSERT INTO personnes VALUES (1, 'Breccia', 'Evaristo'), (2, 'Adriani', 'Achille'), (3, 'Botti', 'Giuseppe');
INSERT INTO decouvertes VALUES (1, 1, 1, 1905), (2, 2, 2, 1935), (3, 3, 1, 1910), (4, 5, 3, 1895);
INSERT INTO bibliographies VALUES (1, 1, 'Rapport 1907', 1907), (2, 2, 'Repertorio', 1966);
INSERT INTO references_biblio VALUES (1, 1, 1, '12-14'), (2, 3, 1, '20'), (3, 2, 2, '101');
`

// New opens a seeded in-memory database closed at test cleanup.
func New(t testing.TB) *store.SQLite {
	t.Helper()
	db, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := db.Exec(ctx, Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := db.Exec(ctx, Seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

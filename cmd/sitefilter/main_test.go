package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/httpapi"
	"github.com/mohammed-shakir/cartalex/internal/store/storetest"
)

const repoConfig = "../../configs/filters.yaml"

func siteAPI(t *testing.T) string {
	t.Helper()
	r := chi.NewRouter()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpapi.New(catalog.Sites(), storetest.New(t), log, 9).Mount(r, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIDs_Intersection(t *testing.T) {
	api := siteAPI(t)
	out, err := execute(t, "ids", "--api", api, "--config", repoConfig,
		"-s", "vestiges.periode=Romain", "-s", "decouvertes.p.nom=Breccia")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1\n3\n" {
		t.Fatalf("out=%q", out)
	}
}

func TestIDs_MapLibreFormat(t *testing.T) {
	api := siteAPI(t)
	out, err := execute(t, "ids", "--api", api, "--config", repoConfig, "--format", "maplibre",
		"-s", "bibliographies.auteur=Adriani")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != `["in",["id"],["literal",[2]]]` {
		t.Fatalf("out=%q", got)
	}

	out, err = execute(t, "ids", "--api", api, "--config", repoConfig, "--format", "maplibre")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Fatalf("unconstrained out=%q", out)
	}
}

func TestIDs_UnknownSubFilter(t *testing.T) {
	if _, err := execute(t, "ids", "--api", siteAPI(t), "--config", repoConfig, "-s", "vestiges.nope=x"); err == nil {
		t.Fatal("want error")
	}
}

func TestValues_ListsEveryFilter(t *testing.T) {
	out, err := execute(t, "values", "--api", siteAPI(t), "--config", repoConfig)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"vestiges\n",
		"  periode: Ptolemaique, Romain, Byzantin\n",
		"  p.nom: Adriani, Botti, Breccia\n",
		"  nom_document: Rapport 1907, Repertorio\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestParseSelect(t *testing.T) {
	f, s, v, err := parseSelect("decouvertes.p.nom=Breccia")
	if err != nil || f != "decouvertes" || s != "p.nom" || v != "Breccia" {
		t.Fatalf("got %q %q %q %v", f, s, v, err)
	}
	for _, bad := range []string{"vestiges", "vestiges=x", ".a=b", "a.=b"} {
		if _, _, _, err := parseSelect(bad); err == nil {
			t.Fatalf("%q: want error", bad)
		}
	}
}

// Package prereqs exposes the prerequisite inference pass as an HTTP cloud
// function.
package prereqs

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/openswoop/coursegraph/pkg/config"
	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/logger"
	"github.com/openswoop/coursegraph/pkg/prereq"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/viper"
)

type response struct {
	Updated int `json:"updated"`
}

// Handler reruns inference against store on every request. The debug query
// parameter dumps the computed graph instead of writing it.
func Handler(store prereq.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.URL.Query().Has("debug") {
			graph, err := infer(ctx, store)
			if err != nil {
				log.Error("Failed to read courses", "error", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			spew.Fdump(w, graph)
			return
		}

		updated, err := prereq.Run(ctx, store, log)
		if err != nil {
			log.Error("Failed to update prerequisites", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{Updated: updated})
	}
}

func infer(ctx context.Context, store prereq.Store) (prereq.Graph, error) {
	var entries []prereq.Entry
	err := store.EachCourse(ctx, func(c scrape.Course) error {
		entries = append(entries, prereq.EntryOf(c))
		return nil
	})
	return prereq.Infer(entries), err
}

// UpdatePrerequisites is the cloud function entry point. The store is read
// from COURSEGRAPH_ environment variables.
func UpdatePrerequisites(w http.ResponseWriter, r *http.Request) {
	log, err := logger.New("prod")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer log.Sync()

	v := viper.New()
	if err := config.Configure(v, ""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cfg, err := config.Load(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	store, err := database.NewFirestore(r.Context(), database.FirestoreOptions{
		ProjectID:  cfg.Project,
		DatabaseID: cfg.Database,
		Collection: cfg.Collection,
	})
	if err != nil {
		log.Error("Failed to open store", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer store.Close()

	Handler(store, log)(w, r)
}

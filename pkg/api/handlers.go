package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/trendoor/pkg/history"
	"github.com/ethpandaops/trendoor/pkg/store"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig returns the public server configuration.
func (s *server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	backend := "local"
	if s.cfg.Storage.S3 != nil && s.cfg.Storage.S3.Enabled {
		backend = "s3"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"storage": map[string]any{
			"backend": backend,
		},
		"indexing": map[string]any{
			"enabled": s.indexStore != nil,
		},
		"auth": map[string]any{
			"write_token_required": len(s.cfg.Server.Auth.WriteTokens) > 0,
		},
	})
}

// handleListDocuments returns the names of all history documents.
func (s *server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Listing documents failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing documents"})

		return
	}

	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": names})
}

// handleGetDocument serves a full history document in canonical JSON form.
func (s *server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.getDocument(w, r)
	if !ok {
		return
	}

	data, err := history.Serialize(doc)
	if err != nil {
		s.log.WithError(err).Error("Serializing document failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"serializing document"})

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// handleGetDocumentJS serves a document in the dashboard JS form.
func (s *server) handleGetDocumentJS(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.getDocument(w, r)
	if !ok {
		return
	}

	data, err := history.EncodeJS(doc)
	if err != nil {
		s.log.WithError(err).Error("Encoding document failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"encoding document"})

		return
	}

	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write(data)
}

// handleListSuites returns the suite names of a document, sorted.
func (s *server) handleListSuites(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.getDocument(w, r)
	if !ok {
		return
	}

	suites := doc.Suites()
	sort.Strings(suites)

	writeJSON(w, http.StatusOK, map[string]any{"suites": suites})
}

// handleGetSeries returns the ordered points of one measurement series.
func (s *server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.Query(
		r.Context(),
		chi.URLParam(r, "doc"),
		chi.URLParam(r, "suite"),
		chi.URLParam(r, "measurement"),
	)
	if err != nil {
		s.respondStoreError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// handleAppendEntry appends one entry to a suite of a document. The
// document is created on first append.
func (s *server) handleAppendEntry(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var entry history.Entry
	if err := dec.Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"decoding entry: " + err.Error()})

		return
	}

	err := s.store.Append(
		r.Context(),
		chi.URLParam(r, "doc"),
		chi.URLParam(r, "suite"),
		entry,
	)
	if err != nil {
		var verr *history.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity,
				errorResponse{verr.Error()})

			return
		}

		s.log.WithError(err).Error("Appending entry failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"appending entry"})

		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// handleIndexSuites returns the distinct suite names known to the index.
func (s *server) handleIndexSuites(w http.ResponseWriter, r *http.Request) {
	suites, err := s.indexStore.ListSuites(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Listing index suites failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing suites"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suites": suites})
}

// handleIndexMeasurements returns the measurement names of a suite.
func (s *server) handleIndexMeasurements(w http.ResponseWriter, r *http.Request) {
	names, err := s.indexStore.ListMeasurements(
		r.Context(), chi.URLParam(r, "suite"),
	)
	if err != nil {
		s.log.WithError(err).Error("Listing index measurements failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing measurements"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"measurements": names})
}

// handleIndexSeries returns an indexed series filtered by query params:
// suite and measurement are required, document is optional.
func (s *server) handleIndexSeries(w http.ResponseWriter, r *http.Request) {
	suite := r.URL.Query().Get("suite")
	measurement := r.URL.Query().Get("measurement")

	if suite == "" || measurement == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"suite and measurement are required"})

		return
	}

	points, err := s.indexStore.ListSeries(
		r.Context(), r.URL.Query().Get("document"), suite, measurement,
	)
	if err != nil {
		s.log.WithError(err).Error("Listing index series failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing series"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// getDocument fetches the document named in the URL, writing the error
// response itself when the lookup fails.
func (s *server) getDocument(
	w http.ResponseWriter, r *http.Request,
) (*history.Document, bool) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "doc"))
	if err != nil {
		s.respondStoreError(w, err)

		return nil, false
	}

	return doc, true
}

func (s *server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"document not found"})

		return
	}

	s.log.WithError(err).Error("Store error")
	writeJSON(w, http.StatusInternalServerError,
		errorResponse{"internal error"})
}

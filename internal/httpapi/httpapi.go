// Package httpapi is the HTTP surface of the lookup handle: one route,
// GET /ip/<address>, forwarding to (*whipdb.Database).Lookup.
//
// Grounded on the teacher's examples/library-usage/http-api.go: plain
// net/http.HandleFunc, no router framework, JSON error bodies.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/wbolster/whipdb/pkg/lookup"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/whipdb"
)

// Server answers lookups against a single open database handle.
type Server struct {
	db *whipdb.Database
}

// NewServer wraps db for HTTP serving.
func NewServer(db *whipdb.Database) *Server {
	return &Server{db: db}
}

// Handler builds the route table: GET /ip/{address}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ip/{address}", s.handleLookup)
	return mux
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	datetime := r.URL.Query().Get("datetime")

	res, ok, err := s.db.Lookup(address, datetime)
	if err != nil {
		if errors.Is(err, model.ErrMalformedAddress) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "malformed address",
				"ip":    address,
			})
			return
		}
		log.Printf("ERROR: lookup %q: %v", address, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "lookup failed",
		})
		return
	}
	if !ok {
		writeJSONRaw(w, http.StatusOK, []byte("{}"))
		return
	}

	body, err := marshalResult(res)
	if err != nil {
		log.Printf("ERROR: marshaling result for %q: %v", address, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "marshaling result",
		})
		return
	}
	writeJSONRaw(w, http.StatusOK, body)
}

// marshalResult renders a hit as its JSON body: the single infoset for
// the latest/timestamp modes, or `{"history": [...]}` (newest first)
// for the full-history mode.
func marshalResult(res lookup.Result) ([]byte, error) {
	if res.History != nil {
		raws := make([]json.RawMessage, len(res.History))
		for i, blob := range res.History {
			raws[i] = json.RawMessage(blob)
		}
		return json.Marshal(map[string][]json.RawMessage{"history": raws})
	}
	return res.Blob, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSONRaw(w, status, body)
}

func writeJSONRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

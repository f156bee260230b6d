package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ndsh/metasearch/internal/api/requestid"
	"github.com/ndsh/metasearch/internal/api/respond"
	"github.com/ndsh/metasearch/internal/api/validate"
	"github.com/ndsh/metasearch/internal/model"
	"github.com/ndsh/metasearch/internal/search"
)

// DefaultQuery is searched when the request omits "query".
const DefaultQuery = "find me datasets showing precipitation in the uk for the last 20 years"

const maxBodyBytes = 1 << 20

// SearchRequest is the payload for POST /search. Pointer fields distinguish
// an absent value (defaulted) from an explicit one (validated).
type SearchRequest struct {
	Query       *string  `json:"query"`
	QueryCol    *string  `json:"query_col"`
	TopK        *int     `json:"topk"`
	ShowColumns []string `json:"show_columns"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Result []model.Row `json:"result"`
}

// ColumnsResponse is the body of GET /columns.
type ColumnsResponse struct {
	Columns       []model.ColumnInfo `json:"columns"`
	DefaultColumn string             `json:"default_column"`
}

// SearchHandler handles POST /search and GET /columns.
type SearchHandler struct {
	searcher      Searcher
	defaultColumn string
	defaultTopK   int
	log           zerolog.Logger
}

func NewSearchHandler(searcher Searcher, defaultColumn string, defaultTopK int, log zerolog.Logger) *SearchHandler {
	if defaultColumn == "" {
		defaultColumn = "abstract"
	}
	if defaultTopK < 1 {
		defaultTopK = 5
	}
	return &SearchHandler{searcher: searcher, defaultColumn: defaultColumn, defaultTopK: defaultTopK, log: log}
}

func (h *SearchHandler) decode(r *http.Request) (query, column string, k int, show []string, errs validate.Errors) {
	var req SearchRequest
	if errs = validate.DecodeJSON(r.Body, &req); errs != nil {
		return
	}
	if errs = validate.Search(req.Query, req.QueryCol, req.TopK, req.ShowColumns); errs != nil {
		return
	}
	query, column, k = DefaultQuery, h.defaultColumn, h.defaultTopK
	if req.Query != nil {
		query = *req.Query
	}
	if req.QueryCol != nil {
		column = *req.QueryCol
	}
	if req.TopK != nil {
		k = *req.TopK
	}
	return query, column, k, req.ShowColumns, nil
}

func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	query, column, k, show, errs := h.decode(r)
	if errs != nil {
		respond.WriteValidationError(w, errs)
		return
	}

	h.log.Info().
		Str("request_id", requestid.FromContext(r.Context())).
		Str("query", query).
		Str("query_col", column).
		Int("topk", k).
		Strs("show_columns", show).
		Msg("search request")

	hits, err := h.searcher.Search(r.Context(), query, column, k)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// An empty show_columns list means no projection.
	rows := search.Rows(hits)
	if len(show) > 0 {
		if err := h.searcher.CheckProjection(show); err != nil {
			h.writeError(w, r, err)
			return
		}
		if rows, err = search.Project(hits, show); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	respond.WriteJSON(w, http.StatusOK, SearchResponse{Result: rows})
}

// ListColumns handles GET /columns.
func (h *SearchHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, ColumnsResponse{
		Columns:       h.searcher.Columns(),
		DefaultColumn: h.defaultColumn,
	})
}

func (h *SearchHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrColumnNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation):
		respond.WriteValidationError(w, validate.Errors{validate.Body(err.Error(), "value_error")})
	case errors.Is(err, model.ErrInference):
		h.log.Error().Stack().Err(err).Str("request_id", requestid.FromContext(r.Context())).Msg("model inference failed")
		respond.WriteInternalError(w, "embedding model inference failed")
	default:
		h.log.Error().Stack().Err(err).Str("request_id", requestid.FromContext(r.Context())).Msg("search failed")
		respond.WriteInternalError(w, "search failed")
	}
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"truthx/internal/analyzer"
	"truthx/internal/audit"
	"truthx/internal/logging"
	"truthx/internal/services"
)

const (
	maxQueryBytes     = 64 << 10
	multipartOverhead = 1 << 20
)

type healthResponse struct {
	Status  string `json:"status"`
	FFprobe string `json:"ffprobe"`
	Models  string `json:"models"`
}

type historyResponse struct {
	Items []audit.Entry `json:"items"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	probe := "fallback (ffmpeg)"
	if s.structured() {
		probe = "available"
	}
	writeJSON(w, s.logger, http.StatusOK, healthResponse{
		Status:  "ok",
		FFprobe: probe,
		Models:  s.analyzer.ModelsUsed(),
	})
}

// handleAnalyze streams the multipart body so the video is written to disk
// exactly once, by the analyzer's staging step.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if limit := s.cfg.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	var (
		staged *analyzer.Staged
		query  string
	)
	defer func() { staged.Remove() }()

	reader, err := r.MultipartReader()
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		query = r.PostForm.Get("query")
	case err != nil:
		s.writeFailure(w, r, err)
		return
	default:
		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.writeFailure(w, r, err)
				return
			}
			switch part.FormName() {
			case "video":
				if part.FileName() == "" {
					break
				}
				if staged != nil {
					_ = part.Close()
					writeError(w, s.logger, http.StatusBadRequest, "only one video may be uploaded")
					return
				}
				staged, err = s.analyzer.Stage(&analyzer.Upload{Name: part.FileName(), Body: part})
				if err != nil {
					_ = part.Close()
					s.writeFailure(w, r, err)
					return
				}
			case "query":
				data, err := io.ReadAll(io.LimitReader(part, maxQueryBytes+1))
				if err != nil {
					_ = part.Close()
					s.writeFailure(w, r, err)
					return
				}
				if len(data) > maxQueryBytes {
					_ = part.Close()
					writeError(w, s.logger, http.StatusBadRequest, "query too long")
					return
				}
				query = string(data)
			}
			_ = part.Close()
		}
	}

	rep, err := s.analyzer.AnalyzeStaged(r.Context(), staged, query)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, rep)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, http.StatusNotFound, "history disabled")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, s.logger, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, historyResponse{Items: entries})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, http.StatusNotFound, "history disabled")
		return
	}
	entry, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, entry)
}

// writeFailure maps pipeline errors onto status codes. Server-side failures
// are logged and reported without internal detail.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, analyzer.ErrNoInput):
		writeError(w, s.logger, http.StatusBadRequest, analyzer.NoInputMessage)
		return
	case errors.As(err, &tooLarge):
		writeError(w, s.logger, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		writeError(w, s.logger, status, http.StatusText(status))
		return
	}
	writeError(w, s.logger, status, err.Error())
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"detail": message})
}

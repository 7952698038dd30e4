package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/airline-extractor/internal/models"
	"github.com/BerylCAtieno/airline-extractor/internal/services"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

const (
	// multipartMemory is the part of a form kept in memory; larger uploads
	// spill to temporary files.
	multipartMemory = 32 << 20
	// formOverhead covers multipart boundaries and the non-file fields.
	formOverhead = 1 << 20

	formatXLSX = "xlsx"
)

type Limits struct {
	MaxFileSize int64
	MaxFiles    int
}

type ExtractionHandler struct {
	service services.ExtractionService
	limits  Limits
	logger  *utils.Logger
}

func NewExtractionHandler(service services.ExtractionService, limits Limits, logger *utils.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		service: service,
		limits:  limits,
		logger:  logger,
	}
}

func (h *ExtractionHandler) maxBody() int64 {
	return h.limits.MaxFileSize*int64(h.limits.MaxFiles) + formOverhead
}

func (h *ExtractionHandler) CreateExtraction(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBody() {
		h.respondError(w, utils.NewBadRequestError("Request exceeds the upload size limit"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, utils.NewBadRequestError("Request exceeds the upload size limit"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	airlineCode := r.FormValue("airline")
	if airlineCode == "" {
		h.respondError(w, utils.NewBadRequestError("Airline is required"))
		return
	}

	headers := slices.Concat(r.MultipartForm.File["files"], r.MultipartForm.File["file"])
	if len(headers) == 0 {
		h.respondError(w, utils.NewBadRequestError("No files provided"))
		return
	}
	if len(headers) > h.limits.MaxFiles {
		h.respondError(w, utils.NewBadRequestError(fmt.Sprintf("Too many files: at most %d per request", h.limits.MaxFiles)))
		return
	}

	files := make([]models.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		file, err := h.readFile(fh)
		if err != nil {
			h.respondError(w, err)
			return
		}
		files = append(files, file)
	}

	h.logger.Info("Extraction request", "airline", airlineCode, "files", len(files))

	res, err := h.service.Extract(r.Context(), &models.ExtractionRequest{
		Airline: airlineCode,
		Files:   files,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	if r.URL.Query().Get("format") == formatXLSX {
		w.Header().Set("X-Extraction-Id", res.Response.ID)
		h.respondFile(w, &models.ExportFile{
			Filename:    res.Response.ExportFilename,
			ContentType: exportContentType,
			Data:        res.Workbook,
		})
		return
	}

	h.respondJSON(w, http.StatusCreated, res.Response)
}

func (h *ExtractionHandler) readFile(fh *multipart.FileHeader) (models.UploadedFile, error) {
	if fh.Size > h.limits.MaxFileSize {
		return models.UploadedFile{}, tooLarge(fh.Filename, h.limits.MaxFileSize)
	}

	file, err := fh.Open()
	if err != nil {
		return models.UploadedFile{}, utils.NewInternalError("Failed to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.limits.MaxFileSize+1))
	if err != nil {
		return models.UploadedFile{}, utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > h.limits.MaxFileSize {
		return models.UploadedFile{}, tooLarge(fh.Filename, h.limits.MaxFileSize)
	}

	return models.UploadedFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *ExtractionHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Extraction ID is required"))
		return
	}

	run, err := h.service.GetExtraction(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *ExtractionHandler) ListExtractions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.respondError(w, utils.NewBadRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	runs, err := h.service.ListExtractions(r.Context(), r.URL.Query().Get("airline"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, runs)
}

func (h *ExtractionHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Extraction ID is required"))
		return
	}

	file, err := h.service.DownloadExport(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondFile(w, file)
}

func (h *ExtractionHandler) ListAirlines(w http.ResponseWriter, r *http.Request) {
	airlines, err := h.service.Airlines(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, airlines)
}

func tooLarge(filename string, limit int64) error {
	return utils.NewBadRequestError(fmt.Sprintf("File '%s' exceeds the size limit of %d bytes", filename, limit))
}

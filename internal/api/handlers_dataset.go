// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/playlens/internal/dataset"
	"github.com/tomtom215/playlens/internal/logging"
	"github.com/tomtom215/playlens/internal/metrics"
	"github.com/tomtom215/playlens/internal/predict"
)

// DatasetUpload handles POST /api/v1/dataset. The body is a CSV or JSON
// telemetry export; the format comes from the format query parameter or,
// failing that, the Content-Type header. Column mappings for exports whose
// names fall outside the built-in aliases arrive via the mappings query
// parameter (original=canonical pairs) or, for JSON, the envelope form
// {"rows": [...], "mappings": [...]}.
func (h *Handler) DatasetUpload(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := DatasetUploadRequest{Format: r.URL.Query().Get("format")}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	format := req.Format
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	mappings, err := dataset.ParseMappingSpec(r.URL.Query().Get("mappings"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxUploadBytes)
	defer body.Close()

	var ds *dataset.Dataset
	switch format {
	case "json":
		ds, err = dataset.LoadJSON(body, mappings)
	default:
		format = "csv"
		ds, err = dataset.LoadCSV(body, mappings)
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			metrics.RecordDatasetLoad(format, 0, 0, err)
			rw.PayloadTooLarge("Dataset exceeds upload limit")
			return
		}
		metrics.RecordDatasetLoad(format, 0, 0, err)
		rw.BadRequest("Failed to parse dataset: " + err.Error())
		return
	}
	if ds.Len() == 0 {
		rw.BadRequest("Dataset contains no rows")
		return
	}

	h.svc.LoadDataset(ds)

	users, _ := h.svc.Users()
	metrics.RecordDatasetLoad(format, ds.Len(), len(users), nil)

	training := false
	if h.cfg.Training.TrainOnLoad {
		training = true
		go h.trainInBackground(r.Context())
	}

	rw.Accepted(map[string]interface{}{
		"rows":     ds.Len(),
		"users":    len(users),
		"format":   format,
		"training": training,
	})
}

// Train handles POST /api/v1/train, running a full synchronous training
// pass and persisting the trained models.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Training.Timeout)
	defer cancel()

	report, err := h.svc.TrainAll(ctx)
	if err != nil {
		h.serviceError(rw, err)
		return
	}
	h.recordTrainingMetrics(report)

	if err := h.svc.SaveAll(ctx); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("model persistence failed")
		metrics.RecordModelStoreOp("save", err)
	} else {
		metrics.RecordModelStoreOp("save", nil)
	}

	rw.Success(report)
}

// trainInBackground runs a training pass detached from the request. The
// request context dies with the response, so only its values (request id,
// correlation id) are carried over.
func (h *Handler) trainInBackground(reqCtx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), h.cfg.Training.Timeout)
	defer cancel()

	report, err := h.svc.TrainAll(ctx)
	if err != nil {
		logging.CtxErr(ctx, err).Msg("background training failed")
		return
	}
	h.recordTrainingMetrics(report)

	if err := h.svc.SaveAll(ctx); err != nil {
		logging.CtxErr(ctx, err).Msg("model persistence failed")
		metrics.RecordModelStoreOp("save", err)
		return
	}
	metrics.RecordModelStoreOp("save", nil)
}

func (h *Handler) recordTrainingMetrics(report predict.TrainingReport) {
	allTrained := true
	for _, o := range report.Outcomes {
		duration := time.Duration(o.DurationMS) * time.Millisecond
		if o.Trained {
			metrics.RecordTraining(o.Model, duration, nil)
		} else {
			allTrained = false
			metrics.RecordTrainingSkipped(o.Model)
		}
	}
	if allTrained && len(report.Outcomes) > 0 {
		metrics.RecordTrainingSuccess()
	}
}

func formatFromContentType(contentType string) string {
	if strings.Contains(contentType, "json") {
		return "json"
	}
	return "csv"
}

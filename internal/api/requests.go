// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package api provides HTTP request validation structs with
// go-playground/validator tags. Requests are validated before the
// prediction service is touched.
package api

import (
	"github.com/tomtom215/playlens/internal/validation"
)

// ForecastRequest represents the validated query parameters for
// GET /forecast/revenue.
type ForecastRequest struct {
	Days int `validate:"min=1,max=365"`
}

// RetentionRequest represents the validated query parameters for
// GET /retention.
type RetentionRequest struct {
	Day int `validate:"min=1,max=365"`
}

// WhatIfRequest represents the request body for POST /forecast/whatif.
// Changes are fractional: 0.1 means +10%, -0.5 means -50%. The lower
// bound of -1 is a total collapse of the lever; the upper bound keeps
// scenarios in a range the linear model can say anything useful about.
type WhatIfRequest struct {
	DAUChange        float64 `json:"dau_change" validate:"gte=-1,lte=10"`
	ARPUChange       float64 `json:"arpu_change" validate:"gte=-1,lte=10"`
	ConversionChange float64 `json:"conversion_change" validate:"gte=-1,lte=10"`
}

// ObserveRequest represents the request body for POST /anomalies/observe.
type ObserveRequest struct {
	Metric    string  `json:"metric" validate:"required,metric"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// DatasetUploadRequest represents the validated query parameters for
// POST /dataset.
type DatasetUploadRequest struct {
	Format string `validate:"omitempty,oneof=csv json"`
}

// validateRequest validates a struct using go-playground/validator and
// converts failures to the API error shape.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and user-friendly error
// messages. It integrates with the API error format for consistent error
// responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Error translation to human-readable messages
//   - APIError conversion matching the API's error format
//   - A custom "metric" validator for aggregate time-series names
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type WhatIfRequest struct {
//	    DAUChange        float64 `validate:"gte=-1,lte=10"`
//	    ARPUChange       float64 `validate:"gte=-1,lte=10"`
//	    ConversionChange float64 `validate:"gte=-1,lte=10"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req WhatIfRequest
//	    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//   - oneof=a b: Value must be one of the listed options
//   - metric: Value must name an aggregate series (dau, revenue, sessions)
//
// Numeric validations:
//   - gte=n: Greater than or equal to n
//   - lte=n: Less than or equal to n
//   - gt=n: Greater than n
//   - lt=n: Less than n
//   - min=n: Minimum value n
//   - max=n: Maximum value n
//
// Modifiers:
//   - omitempty: Skip remaining validators when the field is the zero value
package validation

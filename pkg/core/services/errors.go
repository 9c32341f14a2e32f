// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import "errors"

var (
	// ErrInvalidUpload is returned for uploads that fail validation or
	// yield no indexable text.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrUnsupportedFileType is returned when no extractor handles a file.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrNotImplemented is returned for accepted formats that cannot be
	// indexed yet.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidEvent is returned by QASyncService when an event lacks the
	// ids its type needs.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrUnknownEvent is returned by QASyncService for unrecognized event
	// types.
	ErrUnknownEvent = errors.New("unknown event type")
)

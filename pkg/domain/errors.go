package domain

import "errors"

// ErrSourceMissing is returned when the uploaded dump for a dataset is not on the upload storage.
var ErrSourceMissing = errors.New("source file missing")

// ErrRetryBudgetExhausted is returned when the repair loop gives up.
var ErrRetryBudgetExhausted = errors.New(FailureRetryBudgetExhausted)

// ErrDatasetNotFound is returned when a dataset is not in the dataset store.
var ErrDatasetNotFound = errors.New("dataset not found")

// ErrInvalidFilename is returned for upload names that are empty after sanitization
// or do not carry an allowed extension.
var ErrInvalidFilename = errors.New("invalid dump filename")

// ErrEmptyQuestion is returned when a question is blank after sanitization.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrDatasetConflict is returned when an upload would share its scratch database
// with a different, already uploaded dump (e.g. "Sales.sql" and "sales.sql").
var ErrDatasetConflict = errors.New("dataset name conflicts with an existing dump")

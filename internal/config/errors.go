package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoPDFPath is returned when no document is given.
	ErrNoPDFPath = errors.New("no PDF specified: use --pdf-path")

	// ErrNoProjectID is returned when no Google Cloud project is configured.
	ErrNoProjectID = errors.New("no Google Cloud project: use --project-id or set CRITICAT_GCP_PROJECT_ID")

	// ErrNoLocation is returned when the Vertex AI region is empty.
	ErrNoLocation = errors.New("no Vertex AI location: use --location or set CRITICAT_GCP_LOCATION")

	// ErrInvalidJokeMode is returned for a joke mode other than none, default or chaotic.
	ErrInvalidJokeMode = errors.New("invalid joke mode: must be none, default or chaotic")

	// ErrInvalidTemperature is returned when the temperature is outside 0-2.
	ErrInvalidTemperature = errors.New("invalid temperature: must be between 0 and 2")

	// ErrInvalidDPI is returned when the DPI is outside 36-600.
	ErrInvalidDPI = errors.New("invalid DPI: must be between 36 and 600")

	// ErrInvalidJPEGQuality is returned when the JPEG quality is outside 1-100.
	ErrInvalidJPEGQuality = errors.New("invalid JPEG quality: must be between 1 and 100")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRetry is returned for negative retries or inverted backoff bounds.
	ErrInvalidRetry = errors.New("invalid retry settings: retries must be non-negative and max backoff at least base backoff")

	// ErrInvalidTimeout is returned when the timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidFailOn is returned for an unknown failure threshold.
	ErrInvalidFailOn = errors.New("invalid fail-on severity: must be low, medium or high")

	// ErrInvalidRepository is returned when the repository is not "owner/name".
	ErrInvalidRepository = errors.New("invalid repository: must be owner/name")

	// ErrInvalidPRNumber is returned for a negative pull request number.
	ErrInvalidPRNumber = errors.New("invalid pull request number")
)

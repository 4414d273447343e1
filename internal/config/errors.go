package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSiteURL is returned when neither --site-url nor NEWSHOUND_SITE_URL is set.
	ErrNoSiteURL = errors.New("no site url: set --site-url or NEWSHOUND_SITE_URL")

	// ErrInvalidSiteURL is returned for a site url that is not absolute http(s).
	ErrInvalidSiteURL = errors.New("invalid site url")

	// ErrNoOutputDir is returned when no output directory could be resolved.
	ErrNoOutputDir = errors.New("no output directory")

	// ErrInvalidSummaryFormat is returned for an unknown --summary-format.
	ErrInvalidSummaryFormat = errors.New("invalid summary format")

	// ErrInvalidFingerprint is returned for an unknown TLS profile.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNegativeDelay is returned when a settle delay is negative.
	ErrNegativeDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxLoadMore is returned when the load-more cap is negative.
	ErrInvalidMaxLoadMore = errors.New("invalid max load more: must be non-negative")

	// ErrInvalidRateLimit is returned for a negative rate or a jitter outside [0,1].
	ErrInvalidRateLimit = errors.New("invalid image rate limit")

	// ErrInvalidMetricsPort is returned for a port outside 0-65535.
	ErrInvalidMetricsPort = errors.New("invalid metrics port")
)

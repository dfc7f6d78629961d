// Package config assembles the settings of a review.
//
// Settings are layered: NewConfig defaults, then the optional .criticat
// YAML file, then CRITICAT_* environment variables (with the gcloud and
// GitHub Actions variables as fallbacks, and an optional .envrc dotenv file
// below the real environment), then CLI flags. The result is validated once
// and passed by value into the review pipeline.
package config

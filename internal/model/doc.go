// Package model defines the data that flows through a review.
//
// The renderer produces PageImages, the analyzer turns each into a
// PageFinding, the aggregator folds findings into a ReviewVerdict, the joke
// selector picks a JokeSet, and the report builder wraps everything into a
// ReviewReport. Each stage owns the type it produces; none of these values
// is shared mutably between stages.
//
// errors.go holds the error taxonomy used by every stage.
package model

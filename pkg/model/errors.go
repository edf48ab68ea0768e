package model

import "errors"

// Sentinel errors returned by the search pipeline's stages. Kept in
// pkg/model (rather than alongside the driver that mostly returns them)
// so every stage package can return them directly without importing the
// pipeline package back.
var (
	ErrBadInput  = errors.New("toolsearch: bad input")
	ErrIntent    = errors.New("toolsearch: intent extraction failed")
	ErrPlan      = errors.New("toolsearch: query planning failed")
	ErrSource    = errors.New("toolsearch: source retrieval failed")
	ErrFusion    = errors.New("toolsearch: fusion failed")
	ErrEmbed     = errors.New("toolsearch: embedding failed")
	ErrLLM       = errors.New("toolsearch: LLM call failed")
	ErrStore     = errors.New("toolsearch: store operation failed")
	ErrDeadline  = errors.New("toolsearch: deadline exceeded")
	ErrCancelled = errors.New("toolsearch: request cancelled")
)

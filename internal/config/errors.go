package config

import "errors"

var (
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidMaxPages is returned when max_pages is not greater than 0
	ErrInvalidMaxPages = errors.New("max_pages must be greater than 0")
	// ErrInvalidMaxDepth is returned when max_depth is negative
	ErrInvalidMaxDepth = errors.New("max_depth cannot be negative")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidMode is returned for a parse mode other than html or xml
	ErrInvalidMode = errors.New("mode must be html or xml")
	// ErrInvalidFormat is returned for an unknown output format
	ErrInvalidFormat = errors.New("format must be one of json, markdown, pretty, html, text")
	// ErrInvalidHeadingStyle is returned for a heading style other than atx or setext
	ErrInvalidHeadingStyle = errors.New("heading_style must be atx or setext")
	// ErrInvalidHeader is returned for a header not in "Name: Value" form
	ErrInvalidHeader = errors.New("header must be in 'Name: Value' form")
	// ErrInvalidAuthType is returned for an auth type other than basic, bearer or api-key
	ErrInvalidAuthType = errors.New("auth type must be basic, bearer or api-key")
)

package services

import "errors"

// ErrNoStartups reports an upload that parsed but held no usable rows
var ErrNoStartups = errors.New("no startups found in file")

package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

// Outcome taxonomy. Only ErrUpstreamUnavailable and ErrInvalidInput leave the
// service layer as errors; the rest are carried as result statuses.
var (
	ErrNotFound            = cr.New("no catalog match")
	ErrAmbiguous           = cr.New("multiple plausible matches")
	ErrNoPricing           = cr.New("no purchasable listing")
	ErrUpstreamUnavailable = cr.New("catalog search unavailable")
	ErrRegionFetch         = cr.New("region price fetch failed")
	ErrInvalidInput        = cr.New("invalid input")
	ErrThrottled           = cr.New("upstream throttled the request")
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...interface{}) error {
	return cr.Newf(format, args...)
}

// Mark tags err so that errors.Is(err, markErr) holds. A nil err yields markErr.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

func Is(err, reference error) bool {
	return cr.Is(err, reference)
}

func As(err error, target interface{}) bool {
	return cr.As(err, target)
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

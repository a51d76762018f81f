package wakelib

import "errors"

var (
	ErrInvalidClock     = errors.New("clock time must be in HH:MM 24-hour format")
	ErrInvalidWeekday   = errors.New("unknown weekday code")
	ErrSequenceName     = errors.New("sequence name cannot be empty")
	ErrSequenceEmpty    = errors.New("sequence must contain at least one action")
	ErrSequenceNotFound = errors.New("sequence file not found")
)

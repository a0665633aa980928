package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies why a stage failed.
type ErrorKind string

const (
	KindCompletion           ErrorKind = "completion"
	KindPayloadParse         ErrorKind = "payload_parse"
	KindSchema               ErrorKind = "schema"
	KindStructuralConversion ErrorKind = "structural_conversion"
	KindTreeInvariant        ErrorKind = "tree_invariant"
	KindPanic                ErrorKind = "panic"
	KindCancelled            ErrorKind = "cancelled"
)

// StageError is a failure caught at a stage boundary. Raw holds the
// completion text that could not be used, when there was one.
type StageError struct {
	Stage Agent
	Kind  ErrorKind
	Err   error
	Raw   string

	excerptLen int
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Message is the text recorded in State.Error. Parse failures quote a bounded
// excerpt of the raw completion so operators can see what the model said.
func (e *StageError) Message() string {
	switch e.Kind {
	case KindPayloadParse, KindSchema:
		if e.Raw != "" {
			return fmt.Sprintf("%s parsing error: %s", e.Stage, excerpt(e.Raw, e.excerptLen))
		}
		return fmt.Sprintf("%s parsing error: %v", e.Stage, e.Err)
	case KindStructuralConversion:
		return fmt.Sprintf("%s conversion error: %v", e.Stage, e.Err)
	case KindTreeInvariant:
		return fmt.Sprintf("%s tree rejected: %v", e.Stage, e.Err)
	case KindCompletion:
		return fmt.Sprintf("%s completion failed: %v", e.Stage, e.Err)
	case KindPanic:
		return fmt.Sprintf("%s stage panicked: %v", e.Stage, e.Err)
	case KindCancelled:
		return fmt.Sprintf("pipeline cancelled before %s: %v", e.Stage, e.Err)
	default:
		return e.Error()
	}
}

func newStageError(stage Agent, kind ErrorKind, err error, raw string, excerptLen int) *StageError {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &StageError{Stage: stage, Kind: kind, Err: err, Raw: raw, excerptLen: excerptLen}
}

// excerpt returns at most n runes of s with surrounding whitespace removed.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		n = 200
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

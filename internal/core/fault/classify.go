package fault

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Classify maps err onto the fault taxonomy. The outcome (class,
// severity, policy flags) is deterministic for a given error; an error
// that is already a Fault is returned unchanged.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	class, code, fields := detect(err)
	return apply(&Fault{
		ID:         uuid.New().String(),
		Class:      class,
		StatusCode: code,
		Message:    err.Error(),
		Fields:     fields,
		Timestamp:  time.Now(),
		Cause:      err,
	})
}

// ClassOf returns the taxonomy class of err, classifying on the fly when
// err has not passed through Classify yet.
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Class
	}
	class, _, _ := detect(err)
	return class
}

func detect(err error) (Class, int, map[string][]string) {
	// Upstream responses carry an explicit status code.
	var se *StatusError
	if errors.As(err, &se) {
		return classForStatus(se.Code, len(se.Fields) > 0), se.Code, se.Fields
	}

	if class, code, ok := grpcClass(err); ok {
		return class, code, nil
	}

	// Abort and timeout signals before generic transport failures:
	// Go timeouts also satisfy net.Error.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTimeout, 0, nil
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return ClassTimeout, 0, nil
		}
		return ClassNetwork, 0, nil
	}

	// Message sniffing for errors that lost their type crossing a
	// reporting boundary.
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout") || strings.Contains(s, "timed out") ||
		strings.Contains(s, "deadline exceeded"):
		return ClassTimeout, 0, nil
	case strings.Contains(s, "connection refused") || strings.Contains(s, "connection reset") ||
		strings.Contains(s, "no such host") || strings.Contains(s, "network is unreachable") ||
		strings.Contains(s, "broken pipe") || strings.Contains(s, "network error"):
		return ClassNetwork, 0, nil
	}

	return ClassUnknown, 0, nil
}

func classForStatus(code int, hasFieldErrors bool) Class {
	switch {
	case code >= 500:
		return ClassServer
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case (code == http.StatusBadRequest || code == http.StatusUnprocessableEntity) && hasFieldErrors:
		return ClassValidation
	case code >= 400:
		return ClassClient
	}
	return ClassUnknown
}

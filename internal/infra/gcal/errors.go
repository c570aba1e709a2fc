package gcal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
)

type failure int

const (
	failNone failure = iota
	failTransient
	failAuth
	failNotFound
	failPermanent
)

var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

func classify(err error) failure {
	if err == nil {
		return failNone
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_client" || re.ErrorCode == "unauthorized_client" {
			return failAuth
		}
		if re.Response != nil && re.Response.StatusCode >= 500 {
			return failTransient
		}
		return failAuth
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		switch {
		case ge.Code == http.StatusUnauthorized:
			return failAuth
		case ge.Code == http.StatusForbidden:
			for _, item := range ge.Errors {
				if rateLimitReasons[item.Reason] {
					return failTransient
				}
			}
			return failAuth
		case ge.Code == http.StatusTooManyRequests || ge.Code >= 500:
			return failTransient
		case ge.Code == http.StatusNotFound || ge.Code == http.StatusGone:
			return failNotFound
		default:
			return failPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return failTransient
	}
	return failPermanent
}

// translate maps a final failure onto the domain taxonomy.
func translate(op string, err error) error {
	switch classify(err) {
	case failNone:
		return nil
	case failTransient:
		return fmt.Errorf("google %s: %w: %w", op, domain.ErrSyncProviderUnavailable, err)
	case failAuth:
		return fmt.Errorf("google %s: %w: %w", op, domain.ErrSyncAuthExpired, err)
	default:
		return fmt.Errorf("google %s: %w", op, err)
	}
}

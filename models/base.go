package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/invoice_backend/utils"
)

// Rows carry updated_on with microsecond precision (datetime(6)). Its
// RFC 3339 form is the concurrency token handed to clients.
const tokenLayout = time.RFC3339Nano

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func formatToken(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(tokenLayout)
}

// parseToken reads a token sent back by a client. A token that cannot be
// parsed can never match a row, so it is treated as stale.
func parseToken(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, utils.NewInputError("updatedOn is required")
	}
	t, err := time.Parse(tokenLayout, s)
	if err != nil {
		return time.Time{}, utils.ErrorConflict
	}
	return t.UTC(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type actor struct {
	companyId int
	userId    int
	userName  string
}

// actorFromContext reads the company and user set by the auth middleware.
func actorFromContext(ctx context.Context) (actor, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok {
		return actor{}, errors.New("company id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	return actor{companyId: companyId, userId: userId, userName: userName}, nil
}

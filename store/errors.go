package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-ordering-api/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || mongo.IsDuplicateKeyError(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto apperror kinds. what names the entity
// for not-found messages.
func translate(ctx context.Context, err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return apperror.New(apperror.NotFound, what+" not found")
	case ctx.Err() != nil,
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err):
		return apperror.Wrap(apperror.Unavailable, err, "storage unavailable")
	}
	return fmt.Errorf("%s: %w", what, err)
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gallery-backend/internal/metadata"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

type rowDB struct{ err error }

func (d rowDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, d.err
}

func (d rowDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, d.err
}

func (d rowDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{err: d.err}
}

func (d rowDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, d.err
}

func TestGetPhotoNotFound(t *testing.T) {
	s := New(rowDB{err: pgx.ErrNoRows})

	_, err := s.GetPhoto(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetAlbum(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPhotoOtherErrorsAreNotNotFound(t *testing.T) {
	s := New(rowDB{err: errors.New("conn reset")})

	_, err := s.GetPhoto(context.Background(), 42)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSaveFaceGroupsBeginFailure(t *testing.T) {
	s := New(rowDB{err: errors.New("pool closed")})

	_, err := s.SaveFaceGroups(context.Background(), 1, 1, 0)
	assert.ErrorContains(t, err, "pool closed")
}

func TestMetadataAssignmentsOnlyPresentFields(t *testing.T) {
	w, h := 640, 480
	cameraMake := "Canon"
	lat := 31.2
	u := metadata.Updates{Width: &w, Height: &h, CameraMake: &cameraMake, GPSLat: &lat}

	sets, args := metadataAssignments(u)

	assert.Equal(t, []string{"width = $1", "height = $2", "camera_make = $3", "gps_lat = $4"}, sets)
	assert.Equal(t, []any{640, 480, "Canon", 31.2}, args)
}

func TestMetadataAssignmentsEmpty(t *testing.T) {
	sets, args := metadataAssignments(metadata.Updates{})
	assert.Empty(t, sets)
	assert.Empty(t, args)
}

func TestMetadataAssignmentsTakenAt(t *testing.T) {
	taken := time.Date(2023, 10, 1, 12, 34, 56, 0, time.UTC)
	sets, args := metadataAssignments(metadata.Updates{TakenAt: &taken})

	assert.Equal(t, []string{"taken_at = $1"}, sets)
	assert.Equal(t, []any{taken}, args)
}

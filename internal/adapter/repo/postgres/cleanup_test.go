package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neptunehub/campus-errand-engine/internal/adapter/repo/postgres"
)

func TestNewCleanupService_ZeroRetentionDaysDefaultsTo90(t *testing.T) {
	svc := postgres.NewCleanupService(nil, 0)
	assert.Equal(t, 90, svc.RetentionDays)
}

func TestNewCleanupService_NegativeRetentionDaysDefaultsTo90(t *testing.T) {
	svc := postgres.NewCleanupService(nil, -1)
	assert.Equal(t, 90, svc.RetentionDays)
}

func TestNewCleanupService_PositiveRetentionDaysKept(t *testing.T) {
	svc := postgres.NewCleanupService(nil, 30)
	assert.Equal(t, 30, svc.RetentionDays)
}

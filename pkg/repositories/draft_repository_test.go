package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/dahlia/pkg/database"
	"github.com/Ramsey-B/dahlia/pkg/models"
)

func TestDraftFieldsRoundTripThroughJSONB(t *testing.T) {
	serverID := int64(7)
	defaultValue := "Option 2"

	fields := []models.Field{
		{
			TempID:   models.ServerTempID(serverID),
			ID:       &serverID,
			Name:     "signature_1",
			Type:     models.FieldTypeSignature,
			Required: true,
			Partner:  "First Party",
			Position: models.Position{
				X: 0.1, Y: 0.2, Width: 0.25, Height: 0.05, Page: 2,
			},
			DisplayOrder: 1,
		},
		{
			TempID:  "new-1700000000",
			Name:    "radio_1",
			Type:    models.FieldTypeRadio,
			Partner: "Second Party",
			Position: models.Position{
				X: 0.5, Y: 0.5, Width: 0.1, Height: 0.05, Page: 1,
				DefaultValue: &defaultValue,
			},
			Options:      &models.FieldOptions{Options: []string{"Option 1", "Option 2"}, DefaultValue: defaultValue},
			DisplayOrder: 2,
		},
		{
			TempID:  "field-1700000001-42",
			Name:    "cells_1",
			Type:    models.FieldTypeCells,
			Partner: "Second Party",
			Position: models.Position{
				X: 0.1, Y: 0.7, Width: 0.6, Height: 0.1, Page: 1,
			},
			Options:      &models.FieldOptions{Columns: 3, Widths: models.UniformWidths(3)},
			DisplayOrder: 3,
		},
	}

	stored := database.JSONB[[]models.Field]{Data: fields}
	raw, err := stored.Value()
	require.NoError(t, err)

	var loaded database.JSONB[[]models.Field]
	require.NoError(t, loaded.Scan(raw))
	assert.Equal(t, fields, loaded.Data)
}

func TestDraftPartnersRoundTripThroughJSONB(t *testing.T) {
	partners := []string{"First Party", "Second Party"}

	stored := database.JSONB[[]string]{Data: partners}
	raw, err := stored.Value()
	require.NoError(t, err)

	var loaded database.JSONB[[]string]
	require.NoError(t, loaded.Scan(raw))
	assert.Equal(t, partners, loaded.Data)
}

func TestJSONBScanRejectsNonByteSource(t *testing.T) {
	var loaded database.JSONB[[]string]
	assert.Error(t, loaded.Scan(42))
}

package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxstock/m/domain"
	"rxstock/m/internal/database"
	"rxstock/m/internal/store"
)

const catalog = `name,description,quantity,price,expiry_date,manufacturer,category
Amoxicillin 500mg,Broad-spectrum antibiotic,150,25.99,2024-12-31,Pfizer,Antibiotic
Ibuprofen 200mg,Pain reliever,lots,12.50,2025-06-30,Johnson & Johnson,Pain Relief
Cetirizine 10mg,Antihistamine,210,8.20,2027-01-31,UCB
"Omeprazole 20mg","Proton pump inhibitor",12,22.10,2027-02-28,AstraZeneca,Gastrointestinal
`

func TestLoadMedicines(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "medicines.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	n, err := LoadMedicines(ctx, db, path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := store.New(db).ListMedicines(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Amoxicillin 500mg", list[0].Name)
	assert.Equal(t, "Omeprazole 20mg", list[1].Name)
	assert.True(t, list[1].LowStock())

	n, err = LoadMedicines(ctx, db, path, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice is a no-op")
}

func TestLoadMedicinesMissingFile(t *testing.T) {
	db := database.NewTestDB(t)
	_, err := LoadMedicines(context.Background(), db, filepath.Join(t.TempDir(), "nope.csv"), zerolog.Nop())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseRow(t *testing.T) {
	_, err := parseRow(strings.Split("Paracetamol,,-4,5.75,2027-03-31,GSK,Pain Relief", ","))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("quantity"))

	m, err := parseRow(strings.Split(" Paracetamol 500mg ,Analgesic,500,5.75,2027-03-31,GSK,Pain Relief", ","))
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", m.Name)
	assert.Equal(t, "5.75", m.Price.String())
}

package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

// Fixture module names
const (
	TrackModule   = "Startup Innovation Challenge"
	GeneralModule = "Web Development"
)

// NewRegistration builds a pending registration that has not been stored
func NewRegistration(email, module string) *models.Registration {
	return &models.Registration{
		Module:     module,
		Status:     models.StatusPending,
		FullName:   "Ayesha Khan",
		Email:      email,
		Phone:      "03001234567",
		University: "UMT",
		RollNumber: "F2021-001",
		CNIC:       "35202-1234567-1",
		TeamName:   "Solar Squad",
		TeamMembers: []team.Member{
			{Name: "Bilal Ahmed", Email: "bilal@example.com", CNIC: "35202-7654321-3"},
		},
		Submissions:  map[string]json.RawMessage{},
		CurrentPhase: "idea",
	}
}

// RegistrationCreator is satisfied by every registration store
type RegistrationCreator interface {
	Create(ctx context.Context, reg *models.Registration) error
}

// CreateRegistration stores a registration and fails the test on error
func CreateRegistration(t *testing.T, store RegistrationCreator, reg *models.Registration) *models.Registration {
	t.Helper()

	if err := store.Create(context.Background(), reg); err != nil {
		t.Fatalf("Failed to create registration %s: %v", reg.Email, err)
	}
	return reg
}

// RawColumn reads one text column of a registration directly, bypassing
// repository decoding
func RawColumn(t *testing.T, db *sql.DB, id, column string) string {
	t.Helper()

	var value sql.NullString
	// column names come from test code only
	if err := db.QueryRow("SELECT "+column+"::text FROM registrations WHERE id = $1", id).Scan(&value); err != nil {
		t.Fatalf("Failed to read %s: %v", column, err)
	}
	return value.String
}

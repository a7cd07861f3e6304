package audit_test

import (
	"context"
	"testing"

	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRecordStoresActorAndDetails(t *testing.T) {
	db := testutil.NewDB(t)
	trail := audit.NewTrail(testutil.NewLogger())

	uid := uint(7)
	ctx := audit.WithActor(context.Background(), audit.Actor{UserID: &uid, IP: "10.0.0.5"})

	err := db.Transaction(func(tx *gorm.DB) error {
		trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditDebtPaid,
			ObjectType: "Customer",
			ObjectID:   12,
			Details:    map[string]string{"old": "10.00", "new": "4.00"},
		})
		return nil
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.AuditDebtPaid, row.Action)
	assert.Equal(t, "12", row.ObjectID)
	assert.Equal(t, "10.0.0.5", row.IPAddress)
	require.NotNil(t, row.UserID)
	assert.Equal(t, uid, *row.UserID)
	assert.JSONEq(t, `{"old":"10.00","new":"4.00"}`, row.Details)
	assert.Zero(t, trail.Dropped())
}

func TestRecordFailureDoesNotAbortTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	trail := audit.NewTrail(testutil.NewLogger())
	require.NoError(t, db.Migrator().DropTable(&models.AuditLog{}))

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Customer{Name: "Amina", IsActive: true}).Error; err != nil {
			return err
		}
		trail.Record(context.Background(), tx, audit.Entry{Action: models.AuditCustomerCreated, ObjectType: "Customer", ObjectID: 1})
		return nil
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), trail.Dropped())
}

func TestActorFromEmptyContext(t *testing.T) {
	a := audit.ActorFrom(context.Background())
	assert.Nil(t, a.UserID)
	assert.Nil(t, a.UserPtr())
	assert.Empty(t, a.IP)
}

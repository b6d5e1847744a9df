// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Today is the fixed clock used by service tests.
var Today = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// Clock returns Today.
func Clock() time.Time { return Today }

// NewDB returns a migrated in-memory SQLite database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Fixture is a small world: one company, one agent, two bidding partners and a property type.
type Fixture struct {
	Company  domain.Company
	Agent    domain.User
	Manager  domain.User
	Partner  domain.Partner
	Partner2 domain.Partner
	Type     domain.PropertyType
}

// Seed creates the base fixture.
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{}
	f.Company = domain.Company{Name: "Estate Co", SaleJournal: "SALE", Currency: "eur"}
	require.NoError(t, db.Create(&f.Company).Error)
	f.Partner = domain.Partner{Name: "Alice Buyer", Email: "alice@example.com"}
	require.NoError(t, db.Create(&f.Partner).Error)
	f.Partner2 = domain.Partner{Name: "Bob Bidder", Email: "bob@example.com"}
	require.NoError(t, db.Create(&f.Partner2).Error)
	f.Agent = domain.User{Fullname: "Agent Smith", Email: "agent@example.com", PasswordHash: "x", Role: constants.Agent, CompanyID: &f.Company.CompanyID}
	require.NoError(t, db.Create(&f.Agent).Error)
	f.Manager = domain.User{Fullname: "Mona Manager", Email: "manager@example.com", PasswordHash: "x", Role: constants.Manager, CompanyID: &f.Company.CompanyID}
	require.NoError(t, db.Create(&f.Manager).Error)
	f.Type = domain.PropertyType{Name: "House", Sequence: domain.DefaultTypeSequence}
	require.NoError(t, db.Create(&f.Type).Error)
	return f
}

// AgentActor acts as the fixture's agent.
func (f *Fixture) AgentActor() domain.Actor {
	return domain.Actor{UserID: f.Agent.UserID, Role: constants.Agent, CompanyID: f.Agent.CompanyID}
}

// ManagerActor acts as the fixture's manager.
func (f *Fixture) ManagerActor() domain.Actor {
	return domain.Actor{UserID: f.Manager.UserID, Role: constants.Manager, CompanyID: f.Manager.CompanyID}
}

// PortalActor acts as a portal user bidding for partner.
func PortalActor(partner domain.Partner) domain.Actor {
	id := partner.PartnerID
	return domain.Actor{UserID: uuid.New(), Role: constants.Portal, PartnerID: &id}
}

// Property inserts a property in state new with the given expected price, salesperson set to the agent.
func (f *Fixture) Property(t *testing.T, db *gorm.DB, name string, expected float64) *domain.Property {
	t.Helper()
	p := &domain.Property{
		Name:           name,
		ExpectedPrice:  expected,
		Bedrooms:       domain.DefaultBedrooms,
		Facades:        domain.DefaultFacades,
		LivingArea:     100,
		Active:         true,
		PropertyTypeID: f.Type.PropertyTypeID,
		SalespersonID:  &f.Agent.UserID,
	}
	p.ApplyDefaults(Today)
	require.NoError(t, db.Create(p).Error)
	return p
}

// AsActor is a fiber middleware that puts actor in the request the way a logged-in session would.
func AsActor(actor domain.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := middleware.SessionUser{UserID: actor.UserID.String(), Role: actor.Role}
		if actor.PartnerID != nil {
			s := actor.PartnerID.String()
			user.PartnerID = &s
		}
		if actor.CompanyID != nil {
			s := actor.CompanyID.String()
			user.CompanyID = &s
		}
		middleware.SetSessionUser(c, user)
		return c.Next()
	}
}

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/auth"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database for testing. The pool is
// pinned to one connection so every query sees the same in-memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// CreateTestUser creates an active user with the given role.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	suffix := uuid.New().String()[:8]
	user := &models.User{
		Email:        "user-" + suffix + "@example.com",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     string(role) + "-" + suffix,
		Role:         role,
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// DeactivateUser flips is_active off. Creating with IsActive=false is not
// enough because the column default wins for zero values.
func DeactivateUser(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()

	if err := db.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}
	user.IsActive = false
}

// CreateTestLead creates a NEW, MEDIUM priority lead owned by owner.
func CreateTestLead(t *testing.T, db *gorm.DB, owner *models.User) *models.Lead {
	t.Helper()

	suffix := uuid.New().String()[:8]
	lead := &models.Lead{
		FirstName:   "Lead",
		LastName:    suffix,
		Email:       "lead-" + suffix + "@example.com",
		Company:     "Acme",
		Status:      models.LeadStatusNew,
		Priority:    models.PriorityMedium,
		Value:       1000,
		OwnerID:     owner.ID,
		CreatedByID: owner.ID,
		Version:     1,
	}

	if err := db.Create(lead).Error; err != nil {
		t.Fatalf("failed to create test lead: %v", err)
	}

	return lead
}

// CreateTestActivity creates a CALL activity on lead authored by user.
func CreateTestActivity(t *testing.T, db *gorm.DB, lead *models.Lead, user *models.User, scheduledAt *time.Time) *models.Activity {
	t.Helper()

	if scheduledAt != nil {
		utc := scheduledAt.UTC()
		scheduledAt = &utc
	}

	activity := &models.Activity{
		Type:        models.ActivityCall,
		Title:       "Follow up call",
		ScheduledAt: scheduledAt,
		LeadID:      lead.ID,
		UserID:      user.ID,
	}

	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("failed to create test activity: %v", err)
	}

	return activity
}

// ActorFor builds the authorization actor for a stored user.
func ActorFor(user *models.User) authz.Actor {
	return authz.Actor{
		ID:    user.ID,
		Role:  user.Role,
		Name:  user.FullName(),
		Email: user.Email,
	}
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds the common test dependencies: one user per role.
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Admin      *models.User
	Manager    *models.User
	Rep        *models.User
	OtherRep   *models.User
}

// NewTestContext creates a database seeded with an admin, a manager and two
// sales executives.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)

	return &TestSetup{
		DB:         db,
		JWTService: CreateTestJWTService(),
		Admin:      CreateTestUser(t, db, models.RoleAdmin),
		Manager:    CreateTestUser(t, db, models.RoleManager),
		Rep:        CreateTestUser(t, db, models.RoleSalesExecutive),
		OtherRep:   CreateTestUser(t, db, models.RoleSalesExecutive),
	}
}

// Token returns a bearer token for user.
func (ts *TestSetup) Token(t *testing.T, user *models.User) string {
	t.Helper()
	return GenerateTestToken(t, ts.JWTService, user)
}

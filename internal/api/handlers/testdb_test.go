package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/api/middleware"
	"github.com/voicedesk/backoffice/internal/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// openTestDB creates a migrated SQLite in-memory DB unique per test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:h_%s?mode=memory&cache=shared&_busy_timeout=5000", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// asAdmin stands in for AuthMiddleware.
func asAdmin(id uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AdminIDKey, id)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.20:4000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

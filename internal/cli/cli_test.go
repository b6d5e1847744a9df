package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/pkg/constants"
	"estate-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeed_CreatesThenResets(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	in := SeedInput{Fullname: "Ada Admin", Email: " Ada@Example.com ", Password: "s3cret!pass", Role: constants.Admin, Company: "Estate Co"}

	u, err := Seed(ctx, db, in)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	require.NotNil(t, u.CompanyID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret!pass")))

	in.Password = "n3w!password"
	in.Role = constants.Manager
	again, err := Seed(ctx, db, in)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, again.UserID)
	assert.Equal(t, constants.Manager, again.Role)

	var users, companies int64
	require.NoError(t, db.Model(&domain.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&domain.Company{}).Count(&companies).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, companies)
}

func TestSeed_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	base := SeedInput{Fullname: "Ada", Email: "ada@example.com", Password: "s3cret!pass", Role: constants.Admin}

	bad := base
	bad.Email = "nope"
	_, err := Seed(context.Background(), db, bad)
	assert.Error(t, err)

	bad = base
	bad.Password = "short"
	_, err = Seed(context.Background(), db, bad)
	assert.Error(t, err)

	bad = base
	bad.Role = "owner"
	_, err = Seed(context.Background(), db, bad)
	assert.Error(t, err)
}

func TestCommands_SQLiteMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estate.db")

	out, err := run(t, "migrate", "up", "--sqlite", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite schema up to date")

	out, err = run(t, "seed", "--sqlite", path, "--email", "agent@example.com", "--password", "s3cret!pass", "--role", "agent")
	require.NoError(t, err)
	assert.Contains(t, out, "agent@example.com (agent) ready")

	_, err = run(t, "migrate", "status", "--sqlite", path)
	assert.Error(t, err)

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	var u domain.User
	require.NoError(t, db.Where("email = ?", "agent@example.com").First(&u).Error)
	assert.Equal(t, constants.Agent, u.Role)
}

func TestImportGitHubCommand(t *testing.T) {
	repo := `{"name":"tool","full_name":"acme/tool","html_url":"https://github.com/acme/tool","description":"A tool","language":"Go","default_branch":"main","owner":{"login":"acme"}}`
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tool", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, repo) })
	mux.HandleFunc("/repos/acme/tool/topics", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"names":[]}`) })
	mux.HandleFunc("/repos/acme/tool/languages", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{}`) })
	mux.HandleFunc("/repos/acme/tool/readme", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `<p>Hi</p>`) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "estate.db")
	out, err := run(t, "import-github", "--sqlite", path, "acme/tool", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "created: tool")

	out, err = run(t, "import-github", "--sqlite", path, "acme", "tool", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped: tool")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  port: 9090
  corsOrigins: ["https://app.example.com"]
database:
  driver: postgres
  host: db
  user: vc
  password: s3cret
  name: analyst
ai:
  provider: OpenAI
  model: gpt-4o-mini
  timeout: 60s
mirror:
  driver: mongo
  timeout: 3s
  mongo:
    uri: mongodb://mongo:27017
auth:
  users:
    - apiKey: key-ada
      id: u1
      email: ada@example.com
      displayName: Ada
`

func TestParse(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("MONGO_URI", "")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Mirror.Timeout)
	assert.Equal(t, "vc_analyst", cfg.Mirror.Mongo.Database)
	require.Len(t, cfg.Auth.Users, 1)
	assert.Equal(t, "Ada", cfg.Auth.Users[0].DisplayName)
	assert.Equal(t, "postgres://vc:s3cret@db:5432/analyst?sslmode=disable", cfg.PostgresDSN())
}

func TestDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("MONGO_URI", "")

	cfg, err := Parse([]byte("database:\n  user: root\n  name: vc\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "g-key", cfg.AI.APIKey)
	assert.Equal(t, "none", cfg.Mirror.Driver)
	assert.Equal(t, "production", cfg.Log.Mode)
	assert.Equal(t, "root:from-env@tcp(localhost:3306)/vc?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"database driver": "database:\n  driver: sqlite\n",
		"ai provider":     "ai:\n  provider: llama\n",
		"mirror driver":   "mirror:\n  driver: firestore\n",
		"mirror timeout":  "ai:\n  timeout: 2s\nmirror:\n  timeout: 5s\n",
		"user without id": "auth:\n  users:\n    - apiKey: k\n",
		"duplicate key":   "auth:\n  users:\n    - {apiKey: k, id: a}\n    - {apiKey: k, id: b}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.Mirror.Driver)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

package database

import (
	"context"
	"testing"

	"foodgram/internal/config"
	"foodgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name           string
		cfg            config.Config
		wantSQL        bool
		wantAuto       bool
		wantErr        bool
		wantErrContain string
	}{
		{"hybrid dev", config.Config{DBDriver: "postgres", DBSchemaMode: "hybrid", Env: "development"}, true, true, false, ""},
		{"hybrid prod", config.Config{DBDriver: "postgres", DBSchemaMode: "hybrid", Env: "production"}, true, false, false, ""},
		{"empty mode defaults to hybrid", config.Config{DBDriver: "postgres", Env: "test"}, true, true, false, ""},
		{"sql only", config.Config{DBDriver: "postgres", DBSchemaMode: "sql", Env: "development"}, true, false, false, ""},
		{"auto prod refused", config.Config{DBDriver: "postgres", DBSchemaMode: "auto", Env: "prod"}, false, false, true, "refusing"},
		{"auto prod allowed", config.Config{DBDriver: "postgres", DBSchemaMode: "auto", Env: "prod", DBAutoMigrateAllowDestructive: true}, false, true, false, ""},
		{"sqlite always auto", config.Config{DBDriver: "sqlite", DBSchemaMode: "sql", Env: "development"}, false, true, false, ""},
		{"unknown mode", config.Config{DBDriver: "postgres", DBSchemaMode: "yolo"}, false, false, true, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			plan, err := PlanSchema(&cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrContain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.RunSQL)
			assert.Equal(t, tt.wantAuto, plan.AutoMigrate)
		})
	}
}

func TestConnectWithOptions_SQLiteAppliesSchema(t *testing.T) {
	cfg := &config.Config{
		DBDriver:     "sqlite",
		DBName:       t.TempDir() + "/foodgram.db",
		DBSchemaMode: SchemaModeHybrid,
		Env:          "test",
	}

	db, err := ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T table should exist", model)
	}

	user := models.User{Email: "a@example.com", Username: "a", FirstName: "A", LastName: "B", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	err = db.Create(&models.Recipe{AuthorID: user.ID, Name: "n", Text: "t", Image: "i", CookingTime: 0}).Error
	assert.Error(t, err, "cooking_time check constraint should reject 0")

	err = db.Create(&models.Follow{AuthorID: user.ID, FollowerID: user.ID}).Error
	assert.Error(t, err, "self-follow check constraint should reject the edge")

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.RunSQL)
	assert.True(t, status.AutoMigrate)
	assert.Empty(t, status.Pending)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on", sqliteDSN(""))
	assert.Equal(t, "file:data.db?_foreign_keys=on", sqliteDSN("data.db"))
}

func TestReadReplicaDSN_FallsBackToPrimarySettings(t *testing.T) {
	cfg := &config.Config{
		DBHost:         "primary",
		DBPort:         "5432",
		DBUser:         "app",
		DBName:         "foodgram",
		DBReadHost:     "replica",
		DBReadPassword: "secret",
	}
	assert.Equal(t,
		"host=replica port=5432 user=app password=secret dbname=foodgram sslmode=disable",
		readReplicaDSN(cfg))
}

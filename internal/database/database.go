// Package database connects the optional dataset database that holds
// region geometry and station rows, falling back to SQLite when Postgres
// is unreachable.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quakesim/engine/internal/model"
	"github.com/quakesim/engine/internal/region"
	"github.com/quakesim/engine/internal/station"
)

// Manager handles database connections and operations.
type Manager struct {
	DB      *gorm.DB
	SqlDB   *sql.DB
	IsValid bool
	// UsingSqlite is set when the Postgres connection failed and the
	// manager fell back to the local SQLite file.
	UsingSqlite    bool
	SqliteFilePath string
	Logger         zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid:        false,
		SqliteFilePath: viper.GetString("dataset.sqlitePath"),
		Logger:         log,
	}
}

// Connect establishes a database connection, falling back to SQLite if Postgres fails.
func (m *Manager) Connect() error {
	var err error

	m.DB, err = m.GetPostgresDB()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		m.UsingSqlite = true
		m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %s", err)
		}
		m.IsValid = true
	}

	// test connection
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %s", err)
	}

	err = m.SqlDB.Ping()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to validate connection, trying SQLite")
		m.UsingSqlite = true
		m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %s", err)
		}
		m.IsValid = true
	} else {
		m.Logger.Info().Msg("Connected to database")
		m.IsValid = true
	}

	if !m.UsingSqlite {
		m.SqlDB.SetMaxOpenConns(10)
	}

	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	m.Logger.Debug().Msgf("Connecting to Postgres DB at '%s'", dsn)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if path != "" {
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
			CreateBatchSize:        2000,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			m.IsValid = false
			return nil, err
		}
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	} else {
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
			CreateBatchSize:        2000,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			m.IsValid = false
			return nil, err
		}
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA page_size = 32768;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// Setup migrates the dataset schema.
func (m *Manager) Setup() error {
	// Ensure PostGIS Extension is installed for Postgres
	if m.DB.Dialector.Name() == "postgres" {
		err := m.DB.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to create PostGIS Extension: %s", err)
		}
		m.Logger.Info().Msg("PostGIS Extension created")
	}

	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %s", err)
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// LoadRegions reads every region row in dataset order and decodes it.
// Rows with undecodable geometry come back with an empty shape so the
// index can log and skip them in place.
func (m *Manager) LoadRegions() ([]region.Region, error) {
	var records []model.RegionRecord
	if err := m.DB.Order("position asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("querying regions: %w", err)
	}

	regions := make([]region.Region, 0, len(records))
	for _, rec := range records {
		names := make(map[string]string)
		if len(rec.Names) > 0 {
			if err := json.Unmarshal(rec.Names, &names); err != nil {
				m.Logger.Warn().Err(err).Uint("id", rec.ID).Msg("Undecodable region names")
			}
		}
		r, err := region.FromWKB3857(names, rec.Geometry)
		if err != nil {
			m.Logger.Warn().Err(err).Uint("id", rec.ID).Msg("Undecodable region geometry")
			r = region.Region{Names: names}
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// SaveRegions writes a region dataset, replacing any previous rows.
func (m *Manager) SaveRegions(records []model.RegionRecord) error {
	if err := m.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.RegionRecord{}).Error; err != nil {
		return fmt.Errorf("clearing regions: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	if err := m.DB.Create(&records).Error; err != nil {
		return fmt.Errorf("inserting regions: %w", err)
	}
	return nil
}

// LoadStations reads the station network from the database and feeds it
// into the manager.
func (m *Manager) LoadStations(sm *station.Manager) (int, error) {
	var records []model.StationRecord
	if err := m.DB.Order("station_id asc").Find(&records).Error; err != nil {
		return 0, fmt.Errorf("querying stations: %w", err)
	}
	for _, rec := range records {
		sm.Add(rec.StationID, rec.Lat, rec.Lon, rec.Name)
	}
	return len(records), nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.SqlDB != nil {
		return m.SqlDB.Close()
	}
	return nil
}

package db

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// TestBuildDSN_TCP はTCP接続用のDSN文字列が正しく生成されることを検証します。
func TestBuildDSN_TCP(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Driver:   DriverPostgres,
		User:     "testuser",
		Password: "testpass",
		Name:     "testdb",
		Host:     "localhost",
		Port:     "5432",
		SSLMode:  "disable",
	}

	dsn := BuildDSN(cfg)

	expected := "host=localhost user=testuser password=testpass dbname=testdb sslmode=disable port=5432"
	if dsn != expected {
		t.Errorf("expected DSN %q, got %q", expected, dsn)
	}
}

// TestBuildDSN_CloudSQLTakesPrecedence はInstanceNameとHost/Portが両方設定されている場合にInstanceNameが優先されることを検証します。
func TestBuildDSN_CloudSQLTakesPrecedence(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Driver:       DriverPostgres,
		User:         "testuser",
		Password:     "testpass",
		Name:         "testdb",
		Host:         "localhost",
		Port:         "5432",
		SSLMode:      "disable",
		InstanceName: "project:region:instance",
	}

	dsn := BuildDSN(cfg)

	expected := "host=/cloudsql/project:region:instance user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn != expected {
		t.Errorf("expected DSN %q, got %q", expected, dsn)
	}
}

// TestBuildDSN_SQLite はSQLiteの場合にファイルパスがそのままDSNになることを検証します。
func TestBuildDSN_SQLite(t *testing.T) {
	t.Parallel()

	dsn := BuildDSN(Config{Driver: DriverSQLite, Path: "/var/lib/helioscope/reports.db", Host: "ignored"})

	if dsn != "/var/lib/helioscope/reports.db" {
		t.Errorf("unexpected DSN %q", dsn)
	}
}

// TestBuildDSN_MySQL はMySQLのDSNがTCPとCloud SQLソケットの両方で正しく組み立てられることを検証します。
func TestBuildDSN_MySQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		wantNet  string
		wantAddr string
	}{
		{
			name:     "tcp with default port",
			cfg:      Config{Driver: DriverMySQL, User: "app", Password: "p@ss", Name: "helioscope", Host: "db.internal"},
			wantNet:  "tcp",
			wantAddr: "db.internal:3306",
		},
		{
			name:     "cloud sql socket",
			cfg:      Config{Driver: DriverMySQL, User: "app", Password: "p@ss", Name: "helioscope", Host: "ignored", Port: "3307", InstanceName: "project:region:instance"},
			wantNet:  "unix",
			wantAddr: "/cloudsql/project:region:instance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := mysql.ParseDSN(BuildDSN(tt.cfg))
			if err != nil {
				t.Fatalf("DSN does not parse: %v", err)
			}
			if parsed.Net != tt.wantNet || parsed.Addr != tt.wantAddr {
				t.Errorf("expected %s(%s), got %s(%s)", tt.wantNet, tt.wantAddr, parsed.Net, parsed.Addr)
			}
			if parsed.User != "app" || parsed.Passwd != "p@ss" || parsed.DBName != "helioscope" {
				t.Errorf("unexpected credentials %+v", parsed)
			}
			if !parsed.ParseTime {
				t.Error("expected parseTime to be enabled")
			}
		})
	}
}

// TestOpenerFor は対応ドライバーのみOpenerを返すことを検証します。
func TestOpenerFor(t *testing.T) {
	t.Parallel()

	for _, d := range []string{DriverPostgres, DriverMySQL, DriverSQLite} {
		if _, err := OpenerFor(d); err != nil {
			t.Errorf("driver %q: unexpected error %v", d, err)
		}
	}
	if _, err := OpenerFor("oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

// TestOpenDB_SQLiteMigrates はSQLiteでレポートテーブルが作成されることを検証します。
func TestOpenDB_SQLiteMigrates(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(Config{Driver: DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !db.Migrator().HasTable("estimation_reports") {
		t.Error("expected estimation_reports table to exist")
	}
}

// TestConnectWithRetry_SuccessOnFirstTry は初回接続成功時にリトライせずDBを返すことを検証します。
func TestConnectWithRetry_SuccessOnFirstTry(t *testing.T) {
	t.Parallel()

	mockDB := &gorm.DB{}
	opener := func(dsn string) (*gorm.DB, error) {
		return mockDB, nil
	}

	db, err := ConnectWithRetry("test-dsn", 5*time.Second, opener)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != mockDB {
		t.Error("expected mock DB to be returned")
	}
}

// TestConnectWithRetry_RetriesOnFailure は接続失敗時にリトライして最終的に成功することを検証します。
func TestConnectWithRetry_RetriesOnFailure(t *testing.T) {
	// リトライ間隔の待ち時間があるため並列実行しない

	mockDB := &gorm.DB{}
	attemptCount := 0

	opener := func(dsn string) (*gorm.DB, error) {
		attemptCount++
		if attemptCount < 3 {
			return nil, errors.New("connection refused")
		}
		return mockDB, nil
	}

	db, err := ConnectWithRetry("test-dsn", 10*time.Second, opener)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != mockDB {
		t.Error("expected mock DB to be returned")
	}
	if attemptCount != 3 {
		t.Errorf("expected 3 attempts, got %d", attemptCount)
	}
}

// TestConnectWithRetry_TimeoutAfterRetries はタイムアウト後にエラーが返されることを検証します。
func TestConnectWithRetry_TimeoutAfterRetries(t *testing.T) {
	t.Parallel()

	attemptCount := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attemptCount++
		return nil, errors.New("connection refused")
	}

	_, err := ConnectWithRetry("test-dsn", 100*time.Millisecond, opener)

	if err == nil {
		t.Fatal("expected error after timeout, got nil")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected wrapped cause, got %v", err)
	}
	if attemptCount != 1 {
		t.Errorf("expected a single attempt, got %d", attemptCount)
	}
}

// TestConnectWithRetry_InvalidDSNFailsFast はDSNが不正な場合に再試行しないことを検証します。
func TestConnectWithRetry_InvalidDSNFailsFast(t *testing.T) {
	t.Parallel()

	open, err := OpenerFor(DriverPostgres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	_, err = ConnectWithRetry("host=localhost port=notaport", 10*time.Second, open)

	if !errors.Is(err, ErrInvalidDSN) {
		t.Fatalf("expected ErrInvalidDSN, got %v", err)
	}
	if time.Since(start) >= retryInterval {
		t.Error("expected no retry for an invalid DSN")
	}
}

// TestLoadConfigFromEnv は環境変数からデータベース設定が正しく読み込まれることを検証します。
func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_USER", "envuser")
	t.Setenv("DB_PASSWORD", "envpass")
	t.Setenv("DB_NAME", "envdb")
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("INSTANCE_CONNECTION_NAME", "")

	cfg := LoadConfigFromEnv()

	if cfg.Driver != "postgres" {
		t.Errorf("expected Driver 'postgres', got %q", cfg.Driver)
	}
	if cfg.User != "envuser" || cfg.Password != "envpass" || cfg.Name != "envdb" {
		t.Errorf("unexpected credentials %+v", cfg)
	}
	if cfg.Host != "envhost" || cfg.Port != "5433" {
		t.Errorf("unexpected address %s:%s", cfg.Host, cfg.Port)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("expected default SSLMode 'disable', got %q", cfg.SSLMode)
	}
}

// TestLoadConfigFromEnv_Defaults はDB_DRIVER未設定時にSQLiteが既定になることを検証します。
func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PATH", "")

	cfg := LoadConfigFromEnv()

	if cfg.Driver != DriverSQLite {
		t.Errorf("expected Driver %q, got %q", DriverSQLite, cfg.Driver)
	}
	if cfg.Path != DefaultSQLitePath {
		t.Errorf("expected Path %q, got %q", DefaultSQLitePath, cfg.Path)
	}
}

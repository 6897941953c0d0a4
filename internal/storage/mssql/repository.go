package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"chsld-scraper/internal/observability"
	"chsld-scraper/internal/storage"
)

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository открывает соединение, проверяет его и создаёт TblCHSLD при необходимости
func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}
	if err := r.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) createTable(ctx context.Context) error {
	query := `
		IF OBJECT_ID(N'TblCHSLD', N'U') IS NULL
		CREATE TABLE TblCHSLD (
			[UID]           INT IDENTITY(1,1) PRIMARY KEY,
			[Name]          NVARCHAR(400) NOT NULL,
			[Region]        NVARCHAR(200) NOT NULL,
			[StreetAddress] NVARCHAR(400) NOT NULL,
			[City]          NVARCHAR(200) NOT NULL,
			[PostalCode]    NVARCHAR(20)  NOT NULL,
			[Phone]         NVARCHAR(50)  NOT NULL,
			[Website]       NVARCHAR(800) NOT NULL,
			[ScrapedPage]   NVARCHAR(800) NOT NULL UNIQUE,
			[CheckSum]      CHAR(64)      NOT NULL,
			[UpdatedAt]     DATETIME2     NOT NULL DEFAULT SYSUTCDATETIME()
		);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// UpsertFacility сохраняет или обновляет запись по URL страницы учреждения
func (r *Repository) UpsertFacility(ctx context.Context, row *storage.FacilityRow) (isNew bool, isUpdated bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	existing, err := r.getCheckSum(ctx, row.ScrapedPage)
	if err != nil {
		return false, false, err
	}
	if existing == row.CheckSum {
		return false, false, nil
	}

	query := `
		MERGE INTO TblCHSLD AS target
		USING (SELECT @ScrapedPage AS ScrapedPage) AS source
		ON target.[ScrapedPage] = source.ScrapedPage
		WHEN MATCHED THEN
			UPDATE SET
				[Name] = @Name,
				[Region] = @Region,
				[StreetAddress] = @StreetAddress,
				[City] = @City,
				[PostalCode] = @PostalCode,
				[Phone] = @Phone,
				[Website] = @Website,
				[CheckSum] = @CheckSum,
				[UpdatedAt] = SYSUTCDATETIME()
		WHEN NOT MATCHED THEN
			INSERT ([Name], [Region], [StreetAddress], [City], [PostalCode], [Phone], [Website], [ScrapedPage], [CheckSum])
			VALUES (@Name, @Region, @StreetAddress, @City, @PostalCode, @Phone, @Website, @ScrapedPage, @CheckSum);
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return false, false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	_, err = stmt.ExecContext(ctx,
		sql.Named("Name", row.Name),
		sql.Named("Region", row.Region),
		sql.Named("StreetAddress", row.StreetAddress),
		sql.Named("City", row.City),
		sql.Named("PostalCode", row.PostalCode),
		sql.Named("Phone", row.Phone),
		sql.Named("Website", row.Website),
		sql.Named("ScrapedPage", row.ScrapedPage),
		sql.Named("CheckSum", row.CheckSum),
	)
	if err != nil {
		return false, false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	if existing == "" {
		return true, false, nil
	}
	return false, true, nil
}

// ExistsByURL проверяет, есть ли запись для страницы учреждения
func (r *Repository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM TblCHSLD WHERE ScrapedPage = @ScrapedPage`,
		sql.Named("ScrapedPage", url),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query database: %w", err)
	}

	return count > 0, nil
}

func (r *Repository) GetFacilityCount(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM TblCHSLD`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

// getCheckSum возвращает "", если записи ещё нет
func (r *Repository) getCheckSum(ctx context.Context, url string) (string, error) {
	var sum string
	err := r.db.QueryRowContext(ctx,
		`SELECT [CheckSum] FROM TblCHSLD WHERE ScrapedPage = @ScrapedPage`,
		sql.Named("ScrapedPage", url),
	).Scan(&sum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query database: %w", err)
	}
	return sum, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdCounter struct {
	Domain       string    `gorm:"primaryKey;size:32" json:"domain"`
	TableKey     string    `gorm:"primaryKey;size:64" json:"table_key"`
	LastSequence int64     `gorm:"not null" json:"last_sequence"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IdCounter) TableName() string {
	return "id_counters"
}

// DBCounterStore keeps counters in the id_counters table. Lock uses a MySQL
// advisory lock held on a dedicated connection.
type DBCounterStore struct {
	db       *gorm.DB
	lockName string
	conn     *sql.Conn
}

func NewDBCounterStore(db *gorm.DB, namespace string) *DBCounterStore {
	if namespace == "" {
		namespace = "synth"
	}
	return &DBCounterStore{db: db, lockName: "id_counters:" + namespace}
}

func (s *DBCounterStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&IdCounter{})
}

func (s *DBCounterStore) Load(ctx context.Context) (Counters, error) {
	if s.db == nil {
		return nil, errors.New("db is nil")
	}
	var rows []IdCounter
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(Counters, len(rows))
	for _, r := range rows {
		out[models.TableKey{Domain: models.Domain(r.Domain), Table: r.TableKey}] = r.LastSequence
	}
	return out, nil
}

func (s *DBCounterStore) Save(ctx context.Context, counters Counters) error {
	if s.db == nil {
		return errors.New("db is nil")
	}
	if len(counters) == 0 {
		return nil
	}
	rows := make([]IdCounter, 0, len(counters))
	for _, table := range counters.Tables() {
		rows = append(rows, IdCounter{
			Domain:       string(table.Domain),
			TableKey:     table.Table,
			LastSequence: counters[table],
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain"}, {Name: "table_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_sequence": gorm.Expr("GREATEST(last_sequence, VALUES(last_sequence))"),
			"updated_at":    gorm.Expr("VALUES(updated_at)"),
		}),
	}).Create(&rows).Error
}

// Lock serializes generator runs across processes using GET_LOCK.
// NOTE: GET_LOCK is connection-scoped, so the connection is kept until Unlock.
func (s *DBCounterStore) Lock(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return err
	}
	var ok sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 30)", s.lockName).Scan(&ok); err != nil {
		conn.Close()
		return err
	}
	if !ok.Valid || ok.Int64 != 1 {
		conn.Close()
		return fmt.Errorf("could not acquire counter lock %s", s.lockName)
	}
	s.conn = conn
	return nil
}

func (s *DBCounterStore) Unlock(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	var released sql.NullInt64
	err := s.conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", s.lockName).Scan(&released)
	closeErr := s.conn.Close()
	s.conn = nil
	if err != nil {
		return err
	}
	return closeErr
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/ids"
)

const uniqueViolation = "23505"

type channelRow struct {
	TeamID    string `gorm:"primaryKey"`
	ChannelID string `gorm:"primaryKey"`
	Sequence  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (channelRow) TableName() string { return "channel_states" }

type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, err
	}
	return NewPostgres(db)
}

// NewPostgres migrates the channel_states table on db.
func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&channelRow{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context, key ids.ChannelKey) (channel.State, error) {
	var row channelRow
	err := p.db.WithContext(ctx).
		Where("team_id = ? AND channel_id = ?", key.Team, key.Channel).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return channel.New(key), nil
	}
	if err != nil {
		return channel.State{}, err
	}
	return channel.Decode([]byte(row.Payload))
}

func (p *Postgres) Save(ctx context.Context, s channel.State, prevSequence uint64) error {
	payload, err := channel.Encode(s)
	if err != nil {
		return err
	}
	db := p.db.WithContext(ctx)

	if prevSequence == 0 {
		row := channelRow{
			TeamID:    string(s.Key.Team),
			ChannelID: string(s.Key.Channel),
			Sequence:  s.Sequence,
			Payload:   string(payload),
		}
		err := db.Create(&row).Error
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return err
	}

	res := db.Model(&channelRow{}).
		Where("team_id = ? AND channel_id = ? AND sequence = ?", s.Key.Team, s.Key.Channel, prevSequence).
		Updates(map[string]any{"sequence": s.Sequence, "payload": string(payload), "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

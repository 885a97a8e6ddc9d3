package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rushteam/vidrec/core"
)

// SQLiteStore 是 gorm + sqlite 实现的 InteractionStore，轻量持久化。
// 三张表：videos(videoId, text)、labels(videoId, label)、
// interactions(userId, videoId, watched_percent, liked, whenReacted, timestamp)。
// interactions 只追加，历史全量保留。
type SQLiteStore struct {
	db *gorm.DB
}

var _ core.InteractionStore = (*SQLiteStore)(nil)

type videoRow struct {
	VideoID int64  `gorm:"column:videoId;primaryKey"`
	Text    string `gorm:"column:text"`
}

func (videoRow) TableName() string { return "videos" }

type labelRow struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	VideoID int64  `gorm:"column:videoId;index"`
	Label   string `gorm:"column:label"`
}

func (labelRow) TableName() string { return "labels" }

type interactionRow struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         int64     `gorm:"column:userId;index"`
	VideoID        int64     `gorm:"column:videoId;index"`
	WatchedPercent int       `gorm:"column:watched_percent"`
	Liked          int       `gorm:"column:liked"`
	WhenReacted    *int      `gorm:"column:whenReacted"`
	Timestamp      time.Time `gorm:"column:timestamp"`
}

func (interactionRow) TableName() string { return "interactions" }

// NewSQLiteStore 打开（必要时创建）sqlite 数据库并迁移表结构。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&videoRow{}, &labelRow{}, &interactionRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) AppendInteraction(ctx context.Context, in *core.Interaction) error {
	if err := in.Validate(); err != nil {
		return err
	}

	row := interactionRow{
		UserID:         in.UserID,
		VideoID:        in.VideoID,
		WatchedPercent: in.WatchedPercent,
		Liked:          in.Liked,
		WhenReacted:    in.WhenReacted,
		Timestamp:      in.Timestamp,
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *SQLiteStore) AddVideo(ctx context.Context, v *core.Video) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&videoRow{VideoID: v.ID, Text: v.Text}).Error; err != nil {
			return err
		}
		if err := tx.Where("videoId = ?", v.ID).Delete(&labelRow{}).Error; err != nil {
			return err
		}
		for _, lbl := range v.Labels {
			if err := tx.Create(&labelRow{VideoID: v.ID, Label: lbl}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Videos(ctx context.Context) ([]*core.Video, error) {
	var rows []videoRow
	if err := s.db.WithContext(ctx).Order("videoId").Find(&rows).Error; err != nil {
		return nil, err
	}
	var labels []labelRow
	if err := s.db.WithContext(ctx).Find(&labels).Error; err != nil {
		return nil, err
	}

	byVideo := make(map[int64][]string)
	for _, l := range labels {
		byVideo[l.VideoID] = append(byVideo[l.VideoID], l.Label)
	}
	for _, ls := range byVideo {
		sort.Strings(ls)
	}

	out := make([]*core.Video, 0, len(rows))
	for _, r := range rows {
		out = append(out, &core.Video{ID: r.VideoID, Text: r.Text, Labels: byVideo[r.VideoID]})
	}
	return out, nil
}

func (s *SQLiteStore) UserHistory(ctx context.Context, userID int64) ([]*core.Interaction, error) {
	var rows []interactionRow
	if err := s.db.WithContext(ctx).Where("userId = ?", userID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*core.Interaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToInteraction(r))
	}
	return out, nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (*core.DataSnapshot, error) {
	videos, err := s.Videos(ctx)
	if err != nil {
		return nil, err
	}
	var rows []interactionRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	snap := &core.DataSnapshot{
		Interactions: make([]*core.Interaction, 0, len(rows)),
		Videos:       videos,
		TakenAt:      time.Now(),
	}
	for _, r := range rows {
		snap.Interactions = append(snap.Interactions, rowToInteraction(r))
	}
	return snap, nil
}

func (s *SQLiteStore) StatsFor(ctx context.Context, videoID int64) (*core.VideoStats, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&videoRow{}).Where("videoId = ?", videoID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, core.ErrStoreNotFound
	}

	var rows []interactionRow
	if err := s.db.WithContext(ctx).Where("videoId = ?", videoID).Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := &core.VideoStats{VideoID: videoID}
	var watchedSum, completed int64
	for _, r := range rows {
		stats.Views++
		watchedSum += int64(r.WatchedPercent)
		if r.WatchedPercent >= 90 {
			completed++
		}
		switch r.Liked {
		case 1:
			stats.Likes++
		case -1:
			stats.Dislikes++
		}
	}
	if stats.Views > 0 {
		stats.AvgWatchPercent = float64(watchedSum) / float64(stats.Views)
		stats.CompletionRate = float64(completed) / float64(stats.Views)
	}
	return stats, nil
}

func (s *SQLiteStore) Counts(ctx context.Context) (*core.Counts, error) {
	counts := &core.Counts{}
	if err := s.db.WithContext(ctx).Model(&interactionRow{}).Count(&counts.Interactions).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&videoRow{}).Count(&counts.Videos).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&interactionRow{}).Distinct("userId").Count(&counts.Users).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToInteraction(r interactionRow) *core.Interaction {
	return &core.Interaction{
		UserID:         r.UserID,
		VideoID:        r.VideoID,
		WatchedPercent: r.WatchedPercent,
		Liked:          r.Liked,
		WhenReacted:    r.WhenReacted,
		Timestamp:      r.Timestamp,
	}
}

package database

import (
	"fmt"
	"log/slog"

	"expenseguard/config"
	"expenseguard/models"
	"expenseguard/risk"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	logLevel := logger.Info
	if cfg.Server.Mode == "release" {
		logLevel = logger.Warn
	}

	var err error
	DB, err = gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 连接池配置
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(10)  // 最大空闲连接数
	sqlDB.SetMaxOpenConns(100) // 最大打开连接数

	// 自动迁移数据库表
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Expense{},
		&models.ExpenseCategory{},
	); err != nil {
		return err
	}

	if err := SeedCategories(DB); err != nil {
		return err
	}

	slog.Info("数据库初始化成功")
	return nil
}

// SeedCategories 初始化默认消费类别（仅当表为空时）
func SeedCategories(db *gorm.DB) error {
	var catCount int64
	if err := db.Model(&models.ExpenseCategory{}).Count(&catCount).Error; err != nil {
		return fmt.Errorf("统计类别失败: %w", err)
	}
	if catCount > 0 {
		return nil
	}

	cats := make([]models.ExpenseCategory, 0, len(risk.Categories))
	for i, c := range risk.Categories {
		cats = append(cats, models.ExpenseCategory{
			Name:  c.Name,
			Emoji: c.Emoji,
			Sort:  (i + 1) * 10,
			Color: c.Color,
		})
	}
	if err := db.Create(&cats).Error; err != nil {
		return fmt.Errorf("初始化类别失败: %w", err)
	}
	slog.Info("已初始化默认类别", "count", len(cats))
	return nil
}

// migrate 手动执行或回滚数据库迁移
//
//	migrate up
//	migrate down -steps 1
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"pisqre/backend/config"
	"pisqre/backend/pkg/database"
	applogger "pisqre/backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("PISQRE_CONFIG"), "配置文件路径")
	steps := flag.Int("steps", 1, "down 时回滚的版本数")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: migrate [flags] up|down\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	switch flag.Arg(0) {
	case "up":
		err = database.RunMigrations(sqlDB, logger)
	case "down":
		err = database.RollbackMigrations(sqlDB, *steps, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("迁移失败", zap.Error(err))
	}
}

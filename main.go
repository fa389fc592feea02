package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/auth"
	"github.com/nexcart/storefront-api/cache"
	"github.com/nexcart/storefront-api/logger"
	"github.com/nexcart/storefront-api/models"
	"github.com/nexcart/storefront-api/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.L()
	log.Info("starting storefront API")

	// Init DB
	db := initDatabase()

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Category{},
		&models.Cart{},
		&models.CartItem{},
		&models.Wishlist{},
		&models.WishlistItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Banner{},
	); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	ensureAdmin(db)

	// Gin setup
	r := gin.Default()

	r.MaxMultipartMemory = 32 << 20 // 32 MB uploads

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Serve uploaded images
	uploadsDir := os.Getenv("UPLOAD_DIR")
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	r.Static("/uploads", uploadsDir)

	// Optional redis-backed catalog cache
	var store cache.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		store = cache.NewRedisCache(addr, "storefront")
		log.Info("catalog cache enabled", zap.String("redis_addr", addr))
	}

	// Setup routes
	routes.SetupRoutes(r, db, store)

	// Daily uploads backup at 2 AM, keep 4 days of snapshots
	if backupDir := os.Getenv("BACKUP_DIR"); backupDir != "" {
		go startDailyBackupAtFixedTime(uploadsDir, backupDir, 4*24*time.Hour, 2, 0)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("server listening", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase() *gorm.DB {
	log := logger.L()

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatal("db connection failed", zap.Error(err))
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("db connection failed", zap.Error(err))
	}
	return db
}

// ensureAdmin seeds the bootstrap admin account from ADMIN_EMAIL /
// ADMIN_PASSWORD when no admin exists yet.
func ensureAdmin(db *gorm.DB) {
	log := logger.L()

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		log.Warn("admin lookup failed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Warn("admin seed failed", zap.Error(err))
		return
	}

	admin := models.User{
		ID:           "usr_" + uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		Name:         "Administrator",
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Warn("admin seed failed", zap.Error(err))
		return
	}
	log.Info("bootstrap admin created", zap.String("email", email))
}

package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"backend/models"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// EngineConfig carries every tunable of the synthesis pipeline. The ambiguity
// gap and confidence threshold are deliberately configuration, not constants.
type EngineConfig struct {
	ModelID     string  `env:"BEDROCK_MODEL_ID,default=us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	MaxTokens   int32   `env:"BEDROCK_MAX_TOKENS,default=1024"`
	Temperature float32 `env:"BEDROCK_TEMPERATURE,default=0.2"`
	TopP        float32 `env:"BEDROCK_TOP_P,default=0.9"`

	ConfidenceThreshold   float64       `env:"CONFIDENCE_THRESHOLD,default=0.75"`
	AmbiguityGap          float64       `env:"AMBIGUITY_GAP,default=0.15"`
	MaxClarificationTurns int           `env:"MAX_CLARIFICATION_TURNS,default=4"`
	SessionDeadline       time.Duration `env:"SESSION_DEADLINE,default=10s"`
	MaxDishCandidates     int           `env:"MAX_DISH_CANDIDATES,default=5"`

	VisionCacheTTL  time.Duration `env:"VISION_CACHE_TTL,default=24h"`
	BarcodeCacheTTL time.Duration `env:"BARCODE_CACHE_TTL,default=720h"`

	ProductAPIBase  string `env:"PRODUCT_API_BASE,default=https://world.openfoodfacts.org"`
	RedisAddr       string `env:"REDIS_ADDR"`
	RekognitionGate bool   `env:"REKOGNITION_GATE,default=false"`
}

var Engine EngineConfig

func InitDB() {
	if err := godotenv.Load(); err != nil && os.Getenv("DB_HOST") == "" {
		log.Fatalf("Error loading .env file")
	}

	if err := envdecode.Decode(&Engine); err != nil {
		log.Fatalf("Failed to decode engine config: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.FoodCaptureSession{},
		&models.ClarificationSession{},
		&models.ClarificationTurn{},
		&models.SynthesizedNutritionRecord{},
		&models.ProvenanceEntry{},
		&models.ReferenceFood{},
		&models.CachedProduct{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
}

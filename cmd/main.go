package main

import (
	"log"

	"backend/config"
	"backend/controllers"
	"backend/routes"
	"backend/services"
	"backend/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()

	eng := config.Engine
	retry := utils.NewRetryPolicy()

	var cache utils.ResponseCache
	if eng.RedisAddr != "" {
		cache = utils.NewRedisCache(eng.RedisAddr)
	} else {
		cache = utils.NewMemoryCache()
	}

	vision, err := services.NewBedrockVisionClient()
	if err != nil {
		log.Fatalf("Failed to init Bedrock vision client: %v", err)
	}

	var gate *services.RekognitionService
	if eng.RekognitionGate {
		gate, err = services.NewRekognitionService()
		if err != nil {
			log.Fatalf("Failed to init Rekognition gate: %v", err)
		}
	}

	hub := services.NewRealtimeHub()
	engine := services.NewSynthesisEngine(eng.ConfidenceThreshold, eng.AmbiguityGap)
	dialogue := services.NewClarificationDialogue(config.DB, vision, retry, eng.MaxClarificationTurns)

	captures := services.NewCaptureService(
		config.DB,
		services.NewDishIdentifier(vision, cache, retry, eng.VisionCacheTTL, eng.MaxDishCandidates),
		services.NewPortionEstimator(vision, cache, retry, eng.VisionCacheTTL),
		services.NewLabelOCRExtractor(vision, cache, retry, eng.VisionCacheTTL),
		services.NewBarcodeResolver(config.DB, retry, eng.ProductAPIBase, eng.BarcodeCacheTTL),
		services.NewReferenceDatabaseMatcher(config.DB),
		engine,
		dialogue,
		gate,
		hub,
		utils.UploadCapturePhoto,
		eng.SessionDeadline,
	)

	r := routes.SetupRouter(
		controllers.NewCaptureController(captures),
		controllers.NewHistoryController(services.NewHistoryService(config.DB)),
		controllers.NewRealtimeController(hub),
	)
	r.Run(":8080")
}

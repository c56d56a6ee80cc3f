package services

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionService is a cheap food-presence gate in front of the vision
// pipeline: when enabled, a photo with no food-related label above the
// confidence floor fails fast before any model tokens are spent.
type RekognitionService struct {
	client *rekognition.Client
}

func NewRekognitionService() (*RekognitionService, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return nil, err
	}
	return &RekognitionService{client: rekognition.NewFromConfig(cfg)}, nil
}

var foodLabels = map[string]struct{}{
	"food": {}, "meal": {}, "dish": {}, "cuisine": {}, "snack": {},
	"dessert": {}, "fruit": {}, "vegetable": {}, "beverage": {}, "drink": {},
	"bread": {}, "produce": {}, "plate": {},
}

// ContainsFood returns true when Rekognition sees a food-related label above
// 75% confidence. Gate errors report true: the gate is an optimization and
// must never block a resolvable session.
func (r *RekognitionService) ContainsFood(ctx context.Context, image []byte) bool {
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(75),
	})
	if err != nil {
		slog.Warn("REKOGNITION: gate check failed, passing through", "error", err)
		return true
	}

	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		if _, ok := foodLabels[strings.ToLower(*l.Name)]; ok {
			return true
		}
	}
	slog.Info("REKOGNITION: no food label detected")
	return false
}

package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var s3Client *s3.Client

func InitS3() {
	s3Region := os.Getenv("S3_REGION")
	if s3Region == "" {
		s3Region = os.Getenv("AWS_REGION") // fallback
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(s3Region))
	if err != nil {
		log.Fatalf("Unable to load AWS config for S3: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
}

// DecodeBase64Image splits a "data:<mime>;base64,<data>" URI into raw bytes
// and its content type. The vision stages want bytes; S3 wants both.
func DecodeBase64Image(base64Data string) ([]byte, string, error) {
	parts := strings.Split(base64Data, ",")
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "data:image") {
		return nil, "", fmt.Errorf("invalid base64 image data URI")
	}
	mediaType := strings.SplitN(parts[0], ":", 2)[1]    // "image/jpeg;base64"
	contentType := strings.SplitN(mediaType, ";", 2)[0] // "image/jpeg"

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return data, contentType, nil
}

// UploadCapturePhoto stores one capture photo under captures/ and returns its
// URL so the session keeps a durable photo reference.
func UploadCapturePhoto(imageData []byte, contentType, sessionID, kind string) (string, error) {
	if s3Client == nil {
		return "", fmt.Errorf("S3 client not initialized")
	}

	exts, _ := mime.ExtensionsByType(contentType)
	ext := ".jpg"
	if contentType != "image/jpeg" && contentType != "image/jpg" && len(exts) > 0 {
		ext = exts[0]
	}

	key := fmt.Sprintf("captures/%s/%s-%d%s", sessionID, kind, time.Now().UnixNano(), ext)

	_, err := s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("S3_BUCKET")),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	cfURL := os.Getenv("CLOUDFRONT_URL")
	return fmt.Sprintf("%s/%s", cfURL, key), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"backend/config"
	"backend/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// VisionInvoker is the outbound contract to the vision-AI endpoint: a system
// contract, a user instruction and zero or more images in, raw model text out.
// No availability guarantee, so callers always go through the retry policy.
type VisionInvoker interface {
	Invoke(ctx context.Context, system, user string, images [][]byte) (string, error)
}

type bedrockConverseClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockVisionClient talks to Claude on Bedrock via the Converse API with
// image content blocks.
type BedrockVisionClient struct {
	brc  bedrockConverseClient
	opts config.EngineConfig
}

func NewBedrockVisionClient() (*BedrockVisionClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock: %w", err)
	}
	return &BedrockVisionClient{
		brc:  bedrockruntime.NewFromConfig(cfg),
		opts: config.Engine,
	}, nil
}

func (c *BedrockVisionClient) Invoke(ctx context.Context, system, user string, images [][]byte) (string, error) {
	msg := types.Message{Role: types.ConversationRoleUser}
	for _, img := range images {
		msg.Content = append(msg.Content, &types.ContentBlockMemberImage{
			Value: types.ImageBlock{
				Format: types.ImageFormatJpeg,
				Source: &types.ImageSourceMemberBytes{Value: img},
			},
		})
	}
	msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: user})

	out, err := c.brc.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: []types.Message{msg},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	})
	if err != nil {
		return "", classifyBedrockError(err)
	}

	text := extractText(out)
	slog.Info("VISION: response received", "chars", len(text))
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}

// classifyBedrockError marks throttling, timeouts and server faults as
// retryable; validation and access errors fail fast.
func classifyBedrockError(err error) error {
	var (
		throttle *types.ThrottlingException
		unavail  *types.ServiceUnavailableException
		timeout  *types.ModelTimeoutException
		internal *types.InternalServerException
	)
	if errors.As(err, &throttle) || errors.As(err, &unavail) ||
		errors.As(err, &timeout) || errors.As(err, &internal) {
		return utils.Retryable(err)
	}
	return err
}

func extractText(out *bedrockruntime.ConverseOutput) string {
	om, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var text string
	for _, block := range om.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	return text
}

package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// SNSClient publishes critical alerts to an SNS topic so operators hear
// about emergencies without watching the dashboard.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
}

func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

func (c *SNSClient) NotifyAlert(alert domain.Alert) error {
	subject := fmt.Sprintf("Smart Multiplug: %s alert", alert.Type)
	port := "-"
	if alert.Port != nil {
		port = fmt.Sprintf("%d", *alert.Port)
	}
	message := fmt.Sprintf(
		"%s\n\nSeverity: %s\nPort: %s\nTime: %s\n",
		alert.Message, alert.Severity, port, alert.CreatedAt.Format(time.RFC3339))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	log.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("alert notification sent")
	return nil
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSDriver enqueues email and SMS messages for an out-of-process worker that
// talks to the vendor.
type SQSDriver struct {
	channel  Channel
	client   sqsAPI
	queueURL string
}

type outboxMessage struct {
	Channel Channel        `json:"channel"`
	UserID  string         `json:"user_id"`
	Address string         `json:"address"`
	Subject string         `json:"subject,omitempty"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewSQSClient loads the default AWS credential chain for region.
func NewSQSClient(ctx context.Context, region string) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

func NewSQSDriver(ch Channel, client sqsAPI, queueURL string) *SQSDriver {
	return &SQSDriver{channel: ch, client: client, queueURL: queueURL}
}

func (d *SQSDriver) Name() string     { return "sqs" }
func (d *SQSDriver) Channel() Channel { return d.channel }

func (d *SQSDriver) Send(ctx context.Context, to Recipient, msg Message) (*Result, error) {
	body, err := json.Marshal(outboxMessage{
		Channel: d.channel,
		UserID:  to.UserID.String(),
		Address: to.Address(d.channel),
		Subject: msg.Subject,
		Body:    msg.Body,
		Data:    msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding outbox message: %w", err)
	}

	out, err := d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"channel": {DataType: aws.String("String"), StringValue: aws.String(string(d.channel))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("enqueueing %s message: %w", d.channel, err)
	}
	return &Result{Success: true, Driver: d.Name(), MessageID: aws.ToString(out.MessageId)}, nil
}

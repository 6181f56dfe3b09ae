package main

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"synchro-backend/internal/bootstrap"
	"synchro-backend/internal/queue"
	"synchro-backend/internal/shared/config"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/workflows"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func testApp(t *testing.T) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.Build(config.Config{
		Env:           "dev",
		LocalStoreDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func TestWorkerDeletesMessageAfterRun(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)

	ctx := context.Background()
	if err := app.WorkflowRepo.Create(ctx, workflows.Workflow{ID: "wf-1", UserID: "u1", Status: workflows.StatusPending}); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	if err := app.VideoRepo.Create(ctx, videos.Video{ID: "vid-1", UserID: "u1", WorkflowID: "wf-1", Status: videos.StatusUploaded}); err != nil {
		t.Fatalf("create video: %v", err)
	}

	msgBody, _ := queue.EncodeMessage(queue.Message{VideoID: "vid-1", WorkflowID: "wf-1", RequestID: "req-1"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(string(msgBody)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}

	handleMessage(ctx, app, client, "queue", msg)

	// The pipeline fails (no stored file), which is absorbed into the
	// error state; the message is still consumed.
	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
	video, err := app.VideoRepo.GetByID(ctx, "vid-1")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.Status != videos.StatusError {
		t.Fatalf("expected error status, got %q", video.Status)
	}
}

func TestWorkerDoesNotDeleteOnBookkeepingFailure(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)

	msgBody, _ := queue.EncodeMessage(queue.Message{VideoID: "missing", WorkflowID: "missing", RequestID: "req-2"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m2"),
		ReceiptHandle: aws.String("r2"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)

	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnMissingIDs(t *testing.T) {
	client := &fakeSQS{}
	app := testApp(t)

	msgBody, _ := queue.EncodeMessage(queue.Message{RequestID: "req-4"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

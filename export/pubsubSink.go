package export

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"github.com/sirupsen/logrus"
)

// PubSubSink announces a published run on PUBSUB_TOPIC.
type PubSubSink struct {
	logger *logrus.Logger
	// publish is swapped in tests.
	publish func(ctx context.Context, msg config.RunPublishedMessage) (string, error)
}

func NewPubSubSink(logger *logrus.Logger) *PubSubSink {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &PubSubSink{logger: logger, publish: config.PublishRunNotification}
}

func (s *PubSubSink) Name() string { return "pubsub" }

// RunMessage builds the notification for a run. Remote locations are
// preferred over local paths when an upload sink ran first.
func RunMessage(run *PublishedRun, publishedAt time.Time) config.RunPublishedMessage {
	files := run.Locations
	if len(files) == 0 {
		files = run.Files
	}
	msg := config.RunPublishedMessage{
		RunId:       run.RunId,
		OutputDir:   run.Dir,
		Files:       files,
		PublishedAt: publishedAt.UTC(),
	}
	if run.Summary != nil {
		msg.Status = string(run.Summary.Status)
		msg.RecordCounts = run.Summary.RecordCounts
		msg.CorrelationId = run.Summary.CorrelationId
	}
	return msg
}

func (s *PubSubSink) Deliver(ctx context.Context, run *PublishedRun) error {
	messageId, err := s.publish(ctx, RunMessage(run, time.Now()))
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"field":      "PubSubSink",
		"run_id":     run.RunId,
		"message_id": messageId,
	}).Info("run notification published")
	return nil
}

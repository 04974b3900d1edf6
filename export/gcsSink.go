package export

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/sirupsen/logrus"
)

// GCSSink copies a published run into GCS_BUCKET under an optional prefix.
// Objects that already exist are skipped, so redelivery is safe.
type GCSSink struct {
	prefix string
	logger *logrus.Logger
}

func NewGCSSink(prefix string, logger *logrus.Logger) *GCSSink {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &GCSSink{prefix: strings.Trim(prefix, "/"), logger: logger}
}

func (s *GCSSink) Name() string { return "gcs" }

func (s *GCSSink) ObjectName(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

func (s *GCSSink) Deliver(ctx context.Context, run *PublishedRun) error {
	bucket, err := utils.GCSBucket()
	if err != nil {
		return err
	}
	client, err := utils.GetGCSClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	locations := make([]string, 0, len(run.Files))
	uploaded := 0
	for _, rel := range run.Files {
		object := s.ObjectName(rel)
		exists, err := utils.ObjectExistsInGCS(ctx, client, bucket, object)
		if err != nil {
			return err
		}
		if !exists {
			data, err := os.ReadFile(filepath.Join(run.Dir, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			if err := utils.UploadBytesToGCS(ctx, client, bucket, object, data, contentTypeOf(rel)); err != nil {
				return err
			}
			uploaded++
		}
		locations = append(locations, utils.BuildObjectAccessURL(bucket, object))
	}
	run.Locations = locations

	s.logger.WithFields(logrus.Fields{
		"field":    "GCSSink",
		"run_id":   run.RunId,
		"bucket":   bucket,
		"uploaded": uploaded,
		"skipped":  len(run.Files) - uploaded,
	}).Info("run uploaded")
	return nil
}

func contentTypeOf(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

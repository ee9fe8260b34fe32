package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"nutripal/nutrition"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxDocumentBytes bounds a catalog document read from disk or S3.
const maxDocumentBytes = 8 << 20

var ErrDocumentTooLarge = errors.New("catalog document too large")

// Source yields the foods a Catalog is built from.
type Source interface {
	ReadFoods(ctx context.Context) ([]nutrition.Food, error)
}

type document struct {
	Foods []nutrition.Food `json:"foods"`
}

// Decode reads a catalog document. Both {"foods": [...]} and a bare array of
// foods are accepted.
func Decode(r io.Reader) ([]nutrition.Food, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentBytes {
		return nil, ErrDocumentTooLarge
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty catalog document")
	}

	if data[0] == '[' {
		var foods []nutrition.Food
		if err := json.Unmarshal(data, &foods); err != nil {
			return nil, fmt.Errorf("failed to decode food list: %w", err)
		}
		return foods, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog document: %w", err)
	}
	return doc.Foods, nil
}

//go:embed foods.json
var defaultFoods []byte

// EmbeddedSource serves the seed catalog compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) ReadFoods(ctx context.Context) ([]nutrition.Food, error) {
	return Decode(bytes.NewReader(defaultFoods))
}

// List is a fixed set of foods, used by tests and callers that build the
// catalog in code.
type List []nutrition.Food

func (l List) ReadFoods(ctx context.Context) ([]nutrition.Food, error) {
	return slices.Clone(l), nil
}

// FileSource reads a catalog document from the local filesystem.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) ReadFoods(ctx context.Context) ([]nutrition.Food, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", s.Path, err)
	}
	defer f.Close()

	foods, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", s.Path, err)
	}
	return foods, nil
}

type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a catalog document from an S3 object.
type S3Source struct {
	bucket string
	key    string
	s3     getObjectAPI
}

func NewS3Source(s3Client getObjectAPI, bucket, key string) *S3Source {
	return &S3Source{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3Source) uri() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

func (s *S3Source) ReadFoods(ctx context.Context) ([]nutrition.Food, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog object %s: %w", s.uri(), err)
	}
	defer resp.Body.Close()

	foods, err := Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog object %s: %w", s.uri(), err)
	}
	return foods, nil
}
